package workflow

import (
	"context"
	"time"

	"imgconv/internal/blob"
	"imgconv/internal/imaging"
	"imgconv/internal/queue"
)

// Converter turns one input into an encoded output. imaging.Pipeline is the
// production implementation.
type Converter interface {
	Convert(ctx context.Context, file blob.File, settings imaging.Settings) (blob.Blob, error)
}

// Observer is told whenever the item collection changed.
type Observer interface {
	ItemsChanged(ctx context.Context, items []*queue.Item)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, items []*queue.Item)

// ItemsChanged calls f.
func (f ObserverFunc) ItemsChanged(ctx context.Context, items []*queue.Item) { f(ctx, items) }

// ProgressFunc receives the 1-based position of the item about to convert.
type ProgressFunc func(current, total int, name string)

// Settings are the session-wide conversion settings. Generation increases on
// every change of format or quality.
type Settings struct {
	Format     imaging.Format
	Quality    float64
	Generation uint64
}

// Conversion returns the pipeline view of s.
func (s Settings) Conversion() imaging.Settings {
	return imaging.Settings{Format: s.Format, Quality: s.Quality}
}

// Rejection describes one input that Add refused.
type Rejection struct {
	Name string
	Type string
	Err  error
}

// AddResult reports the outcome of Add. Added preserves input order.
type AddResult struct {
	Added    []*queue.Item
	Rejected []Rejection
}

// BatchSummary totals one convert-all run.
type BatchSummary struct {
	Total     int
	Converted int
	Failed    int
	Skipped   int
	Duration  time.Duration
}
