package export

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"imgconv/internal/archive"
	"imgconv/internal/blob"
	"imgconv/internal/imaging"
	"imgconv/internal/logging"
	"imgconv/internal/notifications"
	"imgconv/internal/queue"
	"imgconv/internal/services"
)

// ErrNothingToExport is returned when no item carries converted output.
var ErrNothingToExport = errors.New("no converted output to export")

// Result describes where an export landed.
type Result struct {
	Path     string
	Name     string
	Files    int
	Fallback bool
}

// Exporter saves converted outputs one by one or bundled into a stored ZIP.
type Exporter struct {
	primary  Saver
	fallback Saver
	notifier notifications.Service
	logger   *slog.Logger
}

// NewExporter wires a primary saver and its fallback. Either may be nil.
func NewExporter(primary, fallback Saver, notifier notifications.Service, logger *slog.Logger) *Exporter {
	return &Exporter{
		primary:  primary,
		fallback: fallback,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "export"),
	}
}

// ExportOne saves a single item's output under its derived name.
func (e *Exporter) ExportOne(ctx context.Context, item *queue.Item, format imaging.Format) (Result, error) {
	if !item.HasOutput() {
		return Result{}, ErrNothingToExport
	}
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithStage(ctx, "export")
	name := DeriveOutputName(item.Name, format)
	result, err := e.save(ctx, name, *item.Output)
	if err != nil {
		return Result{}, err
	}
	result.Files = 1
	e.finish(ctx, result)
	return result, nil
}

// ExportAll bundles every item with output into one archive named after now.
// Items without output are skipped. A failure to read any entry aborts the
// whole export.
func (e *Exporter) ExportAll(ctx context.Context, items []*queue.Item, format imaging.Format, now time.Time) (Result, error) {
	ctx = services.WithStage(ctx, "export")
	entries := make([]archive.Entry, 0, len(items))
	for _, item := range items {
		if !item.HasOutput() {
			continue
		}
		entries = append(entries, archive.Entry{
			Name:   DeriveOutputName(item.Name, format),
			Source: *item.Output,
		})
	}
	if len(entries) == 0 {
		return Result{}, ErrNothingToExport
	}

	bundle, err := archive.BuildBlob(entries)
	if err != nil {
		logging.ErrorWithContext(e.logger, "archive build failed", "archive_failed",
			logging.Int("entries", len(entries)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that converted outputs are still readable"),
		)
		return Result{}, err
	}
	result, err := e.save(ctx, ArchiveName(now), bundle)
	if err != nil {
		return Result{}, err
	}
	result.Files = len(entries)
	e.finish(ctx, result)
	return result, nil
}

func (e *Exporter) save(ctx context.Context, name string, payload blob.Blob) (Result, error) {
	if e.primary != nil {
		path, err := e.primary.Save(ctx, name, payload)
		if err == nil {
			return Result{Path: path, Name: filepath.Base(path)}, nil
		}
		if !errors.Is(err, ErrSaverUnavailable) {
			return Result{}, err
		}
		logging.WarnWithContext(e.logger, "primary save unavailable; using download fallback", "export_fallback",
			logging.String("name", name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file is saved as a generic binary download"),
		)
	}
	if e.fallback == nil {
		return Result{}, services.Wrap(services.ErrSave, "export", "save", name, ErrSaverUnavailable)
	}
	path, err := e.fallback.Save(ctx, name, payload.WithMIME(blob.TypeBinary))
	if err != nil {
		return Result{}, err
	}
	return Result{Path: path, Name: filepath.Base(path), Fallback: true}, nil
}

func (e *Exporter) finish(ctx context.Context, result Result) {
	e.logger.Info("export saved",
		logging.String("name", result.Name),
		logging.Int("files", result.Files),
		logging.Bool("fallback", result.Fallback),
		logging.String("output_path", result.Path),
	)
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyExported(ctx, result.Path, result.Files); err != nil {
		e.logger.Warn("export notification failed", logging.Error(err))
	}
}
