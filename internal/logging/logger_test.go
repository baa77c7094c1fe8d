package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"imgconv/internal/config"
	"imgconv/internal/logging"
	"imgconv/internal/services"
)

func newBufferLogger(t *testing.T, opts logging.Options) (*bytes.Buffer, *logging.Options) {
	t.Helper()
	var buf bytes.Buffer
	opts.Writer = &buf
	return &buf, &opts
}

func TestConsoleLoggerFormatsHeaderAndFields(t *testing.T) {
	buf, opts := newBufferLogger(t, logging.Options{Level: "info", Format: "console"})
	logger, err := logging.New(*opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithItemID(context.Background(), 3)
	ctx = services.WithStage(ctx, "convert")
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "workflow"))
	logger.Info("item converted", logging.Int64("output_bytes", 2048), logging.Bool("copied", true))

	out := buf.String()
	for _, want := range []string{"INFO [workflow] Item #3 (convert) – item converted", "    - Output: 2.0 KiB", "    - Copied: yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no colour codes without Color option, got %q", out)
	}
}

func TestConsoleLoggerHidesDebugOnlyFieldsAtInfo(t *testing.T) {
	buf, opts := newBufferLogger(t, logging.Options{Level: "info", Format: "console"})
	logger, err := logging.New(*opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRequestID(context.Background(), "req-1")
	logging.WithContext(ctx, logger).Info("batch started", logging.String("output_dir", "/tmp/out"))

	out := buf.String()
	if strings.Contains(out, "req-1") || strings.Contains(out, "/tmp/out") {
		t.Fatalf("expected debug-only fields hidden, got %q", out)
	}
	if !strings.Contains(out, "+ 2 more fields hidden") {
		t.Fatalf("expected hidden field count, got %q", out)
	}
}

func TestConsoleLoggerCallerOnlyAtDebug(t *testing.T) {
	buf, opts := newBufferLogger(t, logging.Options{Level: "info", Format: "console"})
	logger, err := logging.New(*opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}

	buf, opts = newBufferLogger(t, logging.Options{Level: "debug", Format: "console"})
	logger, err = logging.New(*opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller", logging.String("request_id", "abc"))
	out := buf.String()
	if !strings.Contains(out, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", out)
	}
	if !strings.Contains(out, "    request_id: abc") {
		t.Fatalf("expected raw debug fields, got %q", out)
	}
}

func TestConsoleLoggerColor(t *testing.T) {
	buf, opts := newBufferLogger(t, logging.Options{Level: "info", Format: "console", Color: true})
	logger, err := logging.New(*opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("careful")
	if !strings.Contains(buf.String(), "\x1b[33mWARN\x1b[0m") {
		t.Fatalf("expected yellow level label, got %q", buf.String())
	}
}

func TestJSONLoggerShape(t *testing.T) {
	buf, opts := newBufferLogger(t, logging.Options{Level: "info", Format: "json"})
	logger, err := logging.New(*opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "encoder slow", "encoder_slow", logging.Error(errors.New("boom")))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["level"] != "warn" || record["msg"] != "encoder slow" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
	if record["error"] != "boom" {
		t.Fatalf("expected flattened error, got %v", record["error"])
	}
	if record[logging.FieldEventType] != "encoder_slow" || record[logging.FieldErrorHint] == nil || record[logging.FieldImpact] == nil {
		t.Fatalf("expected warn context defaults, got %v", record)
	}
}

func TestErrorWithContextKeepsCallerFields(t *testing.T) {
	buf, opts := newBufferLogger(t, logging.Options{Level: "info", Format: "json"})
	logger, err := logging.New(*opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(logger, "export failed", "export_failed", logging.String(logging.FieldErrorHint, "check disk space"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldErrorHint] != "check disk space" {
		t.Fatalf("expected caller hint preserved, got %v", record[logging.FieldErrorHint])
	}
	if _, ok := record[logging.FieldImpact]; ok {
		t.Fatalf("error logs should not inject impact, got %v", record)
	}
}

func TestFilePathMirrorsRecordsAsJSON(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "session.log")
	buf, opts := newBufferLogger(t, logging.Options{Level: "info", Format: "console", FilePath: logPath})
	logger, err := logging.New(*opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("mirrored", logging.String("name", "cat.png"))

	if !strings.Contains(buf.String(), "mirrored") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("decode mirrored record: %v (%q)", err, data)
	}
	if record["msg"] != "mirrored" || record["name"] != "cat.png" {
		t.Fatalf("unexpected mirrored record %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesSessionLogAndPrunes(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.RetentionDays = 7

	stale := filepath.Join(cfg.Paths.LogDir, "imgconv-20000101.log")
	if err := os.WriteFile(stale, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write stale log: %v", err)
	}
	old := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("session started")

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale log pruned, stat err=%v", err)
	}
	current := logging.SessionLogPath(cfg.Paths.LogDir, time.Now())
	if _, err := os.Stat(current); err != nil {
		t.Fatalf("expected session log at %s: %v", current, err)
	}
}

func TestCleanupOldLogsHonorsPatternAndExclude(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)
	names := []string{"imgconv-1.log", "imgconv-2.log", "other.txt"}
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 3, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "imgconv-*.log",
		Exclude: []string{filepath.Join(dir, "imgconv-2.log")},
	})
	if removed != 1 {
		t.Fatalf("expected one file removed, got %d", removed)
	}
	for name, wantExists := range map[string]bool{"imgconv-1.log": false, "imgconv-2.log": true, "other.txt": true} {
		_, err := os.Stat(filepath.Join(dir, name))
		if exists := err == nil; exists != wantExists {
			t.Fatalf("%s exists=%v, want %v", name, exists, wantExists)
		}
	}
	if got := logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: dir}); got != 0 {
		t.Fatalf("expected retention 0 to disable pruning, got %d", got)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.WarnWithContext(nil, "ignored", "ignored")
}

func TestErrorWithContextConsoleShowsAlertAndHint(t *testing.T) {
	buf, opts := newBufferLogger(t, logging.Options{Level: "info", Format: "console"})
	logger, err := logging.New(*opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.ErrorWithContext(logger, "avif worker faulted", "avif_worker_fault",
		logging.Alert("avif_worker_fault"),
		logging.String(logging.FieldErrorHint, "rerun the batch"),
	)
	out := buf.String()
	for _, want := range []string{"    - Alert: avif_worker_fault", "    - Event: avif_worker_fault", `    - Hint: "rerun the batch"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "check logs for details") {
		t.Fatalf("default hint should not override caller hint:\n%s", out)
	}
}
