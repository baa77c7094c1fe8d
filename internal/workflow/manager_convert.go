package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"imgconv/internal/blob"
	"imgconv/internal/logging"
	"imgconv/internal/queue"
	"imgconv/internal/services"
)

const progressBucketPercent = 10

// ConvertOne converts a single item under the current settings. A conversion
// failure is recorded on the returned item rather than returned as an error;
// the error return covers busy, missing items, and store failures.
func (m *Manager) ConvertOne(ctx context.Context, id int64) (*queue.Item, error) {
	release, err := m.acquire("convert one")
	if err != nil {
		return nil, err
	}
	defer release()

	item, err := m.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := m.convertItem(ctx, item, m.Settings()); err != nil {
		return nil, err
	}
	m.changed(ctx)
	return m.Item(ctx, id)
}

// ConvertAll converts every item that lacks a current output, one at a time
// in insertion order. Items already done under the current generation are
// skipped. A cancelled ctx stops the batch before the next item; items not
// reached stay ready.
func (m *Manager) ConvertAll(ctx context.Context, progress ProgressFunc) (BatchSummary, error) {
	release, err := m.acquire("convert all")
	if err != nil {
		return BatchSummary{}, err
	}
	defer release()

	start := time.Now()
	settings := m.Settings()
	items, err := m.store.List(ctx)
	if err != nil {
		return BatchSummary{}, err
	}

	summary := BatchSummary{}
	pending := make([]*queue.Item, 0, len(items))
	for _, item := range items {
		if item.IsCurrent(settings.Generation) {
			summary.Skipped++
			continue
		}
		pending = append(pending, item)
	}
	summary.Total = len(pending)

	logger := logging.WithContext(ctx, m.logger)
	logger.Info("batch started",
		logging.Int("items", summary.Total),
		logging.Int("skipped", summary.Skipped),
		logging.String("format", string(settings.Format)),
		logging.Float64("quality", settings.Quality),
		logging.String(logging.FieldEventType, "batch_started"),
	)
	if summary.Total > 0 {
		m.notify(ctx, "batch started", m.notifier.NotifyBatchStarted(ctx, summary.Total, string(settings.Format)))
	}

	sampler := logging.NewProgressSampler(progressBucketPercent)
	for idx, item := range pending {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			logging.WarnWithContext(logger, "batch interrupted", "batch_interrupted",
				logging.Int("converted", summary.Converted),
				logging.Int("remaining", summary.Total-idx),
				logging.Error(err),
				logging.String(logging.FieldImpact, "remaining items stay ready"),
			)
			m.changed(context.WithoutCancel(ctx))
			return summary, err
		}
		if progress != nil {
			progress(idx+1, summary.Total, item.Name)
		}

		ok, err := m.convertItem(ctx, item, settings)
		if err != nil {
			summary.Duration = time.Since(start)
			m.changed(context.WithoutCancel(ctx))
			return summary, err
		}
		if ok {
			summary.Converted++
		} else {
			summary.Failed++
		}
		if sampler.ShouldLog(idx+1, summary.Total) {
			logger.Info("batch progress",
				logging.Float64(logging.FieldProgressPercent, logging.Percent(idx+1, summary.Total)),
				logging.Int("converted", summary.Converted),
				logging.Int("failed", summary.Failed),
			)
		}
		m.changed(ctx)
	}

	summary.Duration = time.Since(start)
	logger.Info("batch completed",
		logging.Int("converted", summary.Converted),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration),
		logging.String(logging.FieldEventType, "batch_completed"),
	)
	if summary.Total > 0 {
		m.notify(ctx, "batch completed", m.notifier.NotifyBatchCompleted(ctx, summary.Converted, summary.Failed, summary.Duration))
	}
	return summary, nil
}

// convertItem runs one conversion attempt. It reports whether the item ended
// done; the error return is reserved for store failures.
func (m *Manager) convertItem(ctx context.Context, item *queue.Item, settings Settings) (bool, error) {
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithStage(ctx, "convert")
	logger := logging.WithContext(ctx, m.logger)

	if err := m.store.MarkConverting(ctx, item.ID); err != nil {
		return false, err
	}

	convCtx := ctx
	if m.itemTimeout > 0 {
		var cancel context.CancelFunc
		convCtx, cancel = context.WithTimeout(ctx, m.itemTimeout)
		defer cancel()
	}

	started := time.Now()
	out, convErr := m.convert(convCtx, item, settings)

	// The item must leave converting even when the caller gave up.
	persistCtx := context.WithoutCancel(ctx)
	if convErr != nil {
		message := failureMessage(convErr)
		if err := m.store.MarkFailed(persistCtx, item.ID, message, settings.Generation); err != nil {
			return false, err
		}
		logger.Error("conversion failed",
			logging.String("name", item.Name),
			logging.String("error_kind", services.Kind(convErr)),
			logging.Error(convErr),
			logging.String(logging.FieldEventType, "item_failed"),
			logging.String(logging.FieldErrorHint, failureHint(convErr)),
		)
		m.notify(ctx, "item error", m.notifier.NotifyError(ctx, convErr, fmt.Sprintf("%s (item #%d)", item.Name, item.ID)))
		return false, nil
	}

	if err := m.store.MarkDone(persistCtx, item.ID, out, settings.Generation); err != nil {
		return false, err
	}
	logger.Info("item converted",
		logging.String("name", item.Name),
		logging.String("format", string(settings.Format)),
		logging.Int64("input_bytes", item.Size),
		logging.Int64("output_bytes", out.Size()),
		logging.Duration("duration", time.Since(started)),
	)
	return true, nil
}

func (m *Manager) convert(ctx context.Context, item *queue.Item, settings Settings) (_ blob.Blob, err error) {
	if m.converter == nil {
		return blob.Blob{}, services.Wrap(services.ErrEncoderUnavailable, "convert", "pipeline", "no converter configured", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrEncoderUnavailable, "convert", "pipeline", "converter panicked", fmt.Errorf("%v", r))
		}
	}()
	out, err := m.converter.Convert(ctx, item.File(), settings.Conversion())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return blob.Blob{}, err
	}
	if out.Size() == 0 {
		return blob.Blob{}, services.Wrap(services.ErrEncoderUnavailable, "convert", string(settings.Format), "empty output", nil)
	}
	return out, nil
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "conversion timed out"
	case errors.Is(err, context.Canceled):
		return "conversion cancelled"
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "conversion failed"
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrDecodeFailed):
		return "input is corrupt or not really a JPEG/PNG"
	case errors.Is(err, services.ErrEncoderUnavailable):
		return "run imgconv check to verify encoder health"
	case errors.Is(err, services.ErrCodec):
		return "retry with a different quality or format"
	case errors.Is(err, context.DeadlineExceeded):
		return "raise conversion.item_timeout"
	default:
		return "check logs for details"
	}
}
