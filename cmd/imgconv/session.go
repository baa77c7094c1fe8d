package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"imgconv/internal/avifworker"
	"imgconv/internal/config"
	"imgconv/internal/export"
	"imgconv/internal/imaging"
	"imgconv/internal/logging"
	"imgconv/internal/notifications"
	"imgconv/internal/queue"
	"imgconv/internal/staging"
	"imgconv/internal/workflow"
)

// session owns every component a convert run needs.
type session struct {
	store    *queue.Store
	channel  *avifworker.Channel
	pipeline *imaging.Pipeline
	manager  *workflow.Manager
	exporter *export.Exporter
	output   *export.DirSaver
}

// newEncoders builds the conversion pipeline and the AVIF channel behind it.
// The channel starts its worker lazily, so building it is free.
func newEncoders(cfg *config.Config, logger *slog.Logger) (*avifworker.Channel, *imaging.Pipeline) {
	opts := []avifworker.Option{
		avifworker.WithLogger(logger),
		avifworker.WithLoader(avifworker.DefaultLoader(avifworker.CodecOptions{Speed: cfg.Encoder.AVIFSpeed})),
		avifworker.WithFaultHook(func(err error) {
			logging.ErrorWithContext(logger, "avif worker faulted", "avif_worker_fault",
				logging.Alert("avif_worker_fault"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remaining AVIF items fail for this run; rerun the batch"),
			)
		}),
	}
	if cfg.Encoder.CopyPixels {
		opts = append(opts, avifworker.WithCopyPixels())
	}
	channel := avifworker.New(opts...)
	return channel, imaging.NewPipeline(imaging.LibWebP{Method: cfg.Encoder.WebPMethod}, channel, logger)
}

// staleSpillAge is how long an untouched spill database survives before a
// later session removes it.
const staleSpillAge = 24 * time.Hour

func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	if cfg.Paths.SpillDir != "" {
		staging.CleanStale(ctx, cfg.Paths.SpillDir, staleSpillAge, logger)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	channel, pipeline := newEncoders(cfg, logger)
	notifier := notifications.NewService(cfg)

	manager, err := workflow.NewManager(cfg, store, pipeline,
		workflow.WithNotifier(notifier),
		workflow.WithLogger(logger),
	)
	if err != nil {
		_ = channel.Close()
		_ = store.Close()
		return nil, err
	}

	output := export.NewDirSaver(cfg.Paths.OutputDir, logger)
	fallback := export.NewDownloadSaver(cfg.Paths.DownloadsDir, logger)
	return &session{
		store:    store,
		channel:  channel,
		pipeline: pipeline,
		manager:  manager,
		exporter: export.NewExporter(output, fallback, notifier, logger),
		output:   output,
	}, nil
}

func (s *session) Close() error {
	s.manager.Close()
	return errors.Join(s.channel.Close(), s.store.Close())
}
