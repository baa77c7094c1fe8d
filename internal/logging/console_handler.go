package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
)

// levelStyles maps each level floor to its label and colour, highest first.
var levelStyles = []struct {
	floor slog.Level
	label string
	color string
}{
	{slog.LevelError, "ERROR", ansiRed},
	{slog.LevelWarn, "WARN", ansiYellow},
	{slog.LevelInfo, "INFO", ansiBlue},
}

func levelStyle(level slog.Level) (label, color string) {
	for _, s := range levelStyles {
		if level >= s.floor {
			return s.label, s.color
		}
	}
	return "DEBUG", ansiDim
}

// consoleOutput is shared by a handler and every clone derived from it so
// concurrent records never interleave.
type consoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *consoleOutput) write(p []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(p)
	return err
}

// consoleHandler prints one header line per record followed by indented
// fields. At info and above only the curated fields are shown; debug dumps
// everything.
type consoleHandler struct {
	out       *consoleOutput
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
	color     bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource, color bool) slog.Handler {
	return &consoleHandler{out: &consoleOutput{w: w}, level: lvl, addSource: addSource, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// recordHeader holds the values lifted out of the attributes into the
// header line.
type recordHeader struct {
	component string
	itemID    string
	stage     string
}

func headerFrom(kvs []kv) recordHeader {
	var hdr recordHeader
	for _, kv := range kvs {
		switch kv.key {
		case FieldComponent:
			hdr.component = attrString(kv.value)
		case FieldItemID:
			hdr.itemID = attrString(kv.value)
		case FieldStage:
			hdr.stage = attrString(kv.value)
		}
	}
	return hdr
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKVsByKey(kvs)

	var buf bytes.Buffer
	h.writeHeader(&buf, ts, record, headerFrom(kvs))
	if record.Level < slog.LevelInfo {
		h.writeAllFields(&buf, kvs)
	} else {
		h.writeCuratedFields(&buf, kvs)
	}
	return h.out.write(buf.Bytes())
}

func (h *consoleHandler) writeHeader(buf *bytes.Buffer, ts time.Time, record slog.Record, hdr recordHeader) {
	label, color := levelStyle(record.Level)
	h.paint(buf, ansiDim, formatTimestamp(ts))
	buf.WriteByte(' ')
	h.paint(buf, color, label)
	if hdr.component != "" {
		buf.WriteString(" [")
		h.paint(buf, ansiCyan, hdr.component)
		buf.WriteByte(']')
	}
	if subject := formatSubject(hdr.itemID, hdr.stage); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if src := record.Source(); h.addSource && src != nil {
		fmt.Fprintf(buf, " [%s:%d]", filepath.Base(src.File), src.Line)
	}
	buf.WriteByte('\n')
}

func (h *consoleHandler) writeCuratedFields(buf *bytes.Buffer, kvs []kv) {
	fields, hidden := selectInfoFields(kvs)
	for _, field := range fields {
		buf.WriteString("    - ")
		h.paint(buf, ansiDim, field.label+":")
		buf.WriteString(" " + field.value + "\n")
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		fmt.Fprintf(buf, "    + %d more fields hidden\n", hidden)
	}
}

func (h *consoleHandler) writeAllFields(buf *bytes.Buffer, kvs []kv) {
	for _, kv := range kvs {
		if kv.key == FieldComponent {
			continue
		}
		fmt.Fprintf(buf, "    %s: %s\n", kv.key, formatValue(kv.value))
	}
}

func (h *consoleHandler) paint(buf *bytes.Buffer, code, text string) {
	if h.color && code != "" {
		text = code + text + ansiReset
	}
	buf.WriteString(text)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(slices.Clip(h.attrs), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clip(h.groups), name)
	return &clone
}

// formatSubject renders "Item #id (stage)", dropping whichever part is blank.
func formatSubject(itemID, stage string) string {
	itemID = strings.TrimSpace(itemID)
	stage = strings.TrimSpace(stage)
	switch {
	case itemID == "":
		return stage
	case stage == "":
		return "Item #" + itemID
	default:
		return "Item #" + itemID + " (" + stage + ")"
	}
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key with its last value.
// Keyless entries are dropped.
func dedupeKVsByKey(kvs []kv) []kv {
	seen := make(map[string]int, len(kvs))
	out := kvs[:0:0]
	for _, entry := range kvs {
		if entry.key == "" {
			continue
		}
		if pos, ok := seen[entry.key]; ok {
			out[pos].value = entry.value
			continue
		}
		seen[entry.key] = len(out)
		out = append(out, entry)
	}
	return out
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

// flattenAttr appends attr to dst, expanding groups into dotted keys.
func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	path := prefix
	if attr.Key != "" {
		path = append(slices.Clip(prefix), attr.Key)
	}
	if attr.Value.Kind() == slog.KindGroup {
		flattenAttrs(dst, path, attr.Value.Group())
		return
	}
	*dst = append(*dst, kv{key: strings.Join(path, "."), value: attr.Value})
}
