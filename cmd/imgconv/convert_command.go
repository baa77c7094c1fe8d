package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"imgconv/internal/blob"
	"imgconv/internal/config"
	"imgconv/internal/export"
	"imgconv/internal/logging"
	"imgconv/internal/preflight"
	"imgconv/internal/queue"
)

type convertOptions struct {
	format  string
	quality float64
	outDir  string
	zip     bool
	json    bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert images and export the results",
		Long: "Convert JPEG and PNG images to WebP or AVIF. Other files are skipped.\n" +
			"Results are written to the output directory one by one, or bundled\n" +
			"into a single converted-<timestamp>.zip with --zip.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyConvertFlags(cmd, base, opts)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return runConvert(cmd, cfg, logger, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: webp or avif (default from config)")
	cmd.Flags().Float64VarP(&opts.quality, "quality", "q", 0, "Quality between 0 and 1; whole numbers up to 100 are percent")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().BoolVar(&opts.zip, "zip", false, "Bundle every converted file into one ZIP archive")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the session report as JSON")
	return cmd
}

// applyConvertFlags returns a copy of base with the command-line overrides.
func applyConvertFlags(cmd *cobra.Command, base *config.Config, opts convertOptions) (*config.Config, error) {
	cfg := *base
	if cmd.Flags().Changed("format") {
		cfg.Conversion.Format = strings.ToLower(strings.TrimSpace(opts.format))
	}
	if cmd.Flags().Changed("quality") {
		quality := opts.quality
		if quality > 1 && quality <= 100 {
			quality /= 100
		}
		cfg.Conversion.Quality = quality
	}
	if dir := strings.TrimSpace(opts.outDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	return &cfg, nil
}

func runConvert(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, opts convertOptions, args []string) error {
	runCtx := cmd.Context()
	if err := cfg.EnsureDirectories(); err != nil {
		logging.WarnWithContext(logger, "create directories failed", "ensure_directories_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check --out and paths.output_dir"),
			logging.String(logging.FieldImpact, "exports may fall back to the downloads directory"),
		)
	}
	for _, result := range preflight.Failed(preflight.Directories(cfg)) {
		logging.WarnWithContext(logger, "directory check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "exports may fall back to the downloads directory"),
		)
	}

	files := make([]blob.File, 0, len(args))
	for _, arg := range args {
		file, err := blob.FromPath(arg)
		if err != nil {
			return err
		}
		files = append(files, file)
	}

	sess, err := openSession(runCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("session close failed", logging.Error(err))
		}
	}()

	added, err := sess.manager.Add(runCtx, files)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	if !opts.json {
		for _, r := range added.Rejected {
			kind := r.Type
			if kind == "" {
				kind = "unknown type"
			}
			fmt.Fprintf(stderr, "Skipped %s: not a JPEG or PNG image (%s)\n", r.Name, kind)
		}
	}
	if len(added.Added) == 0 {
		return errors.New("no JPEG or PNG images to convert")
	}

	var progress func(current, total int, name string)
	if !opts.json {
		progress = func(current, total int, name string) {
			fmt.Fprintf(stderr, "[%d/%d] %s\n", current, total, name)
		}
	}
	summary, convertErr := sess.manager.ConvertAll(runCtx, progress)

	settings := sess.manager.Settings()
	report := newConvertReport(settings, summary, added.Rejected)
	items, err := sess.manager.Items(runCtx)
	if err != nil {
		return err
	}
	if convertErr == nil {
		if err := exportItems(cmd, sess, items, &report, opts.zip); err != nil {
			return err
		}
	} else {
		for _, item := range items {
			report.Items = append(report.Items, newItemReport(item))
		}
	}

	if opts.json {
		if err := report.encode(cmd.OutOrStdout()); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderItemTable(report.Items, logging.ShouldColorize(out)))
		fmt.Fprintln(out, summaryLine(report))
	}

	if convertErr != nil {
		return convertErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d images failed to convert", summary.Failed, summary.Total)
	}
	return nil
}

func exportItems(cmd *cobra.Command, sess *session, items []*queue.Item, report *convertReport, bundle bool) error {
	runCtx := cmd.Context()
	format := sess.manager.Settings().Format
	if bundle {
		for _, item := range items {
			report.Items = append(report.Items, newItemReport(item))
		}
		result, err := sess.exporter.ExportAll(runCtx, items, format, time.Now())
		if errors.Is(err, export.ErrNothingToExport) {
			return nil
		}
		if err != nil {
			return err
		}
		report.Archive = &archiveReport{Path: result.Path, Files: result.Files, Fallback: result.Fallback}
		return nil
	}

	for _, item := range items {
		entry := newItemReport(item)
		if item.HasOutput() {
			result, err := sess.exporter.ExportOne(runCtx, item, format)
			if err != nil {
				return err
			}
			entry.SavedTo = result.Path
			entry.Fallback = result.Fallback
		}
		report.Items = append(report.Items, entry)
	}
	return nil
}
