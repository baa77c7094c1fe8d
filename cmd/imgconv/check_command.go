package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"imgconv/internal/logging"
	"imgconv/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, encoders, and notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			channel, pipeline := newEncoders(cfg, logger)
			defer channel.Close()

			results := preflight.RunAll(cmd.Context(), cfg, pipeline.HealthChecks()...)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderCheckTable(results, logging.ShouldColorize(out)))

			failed := preflight.Failed(results)
			if len(failed) == 0 {
				fmt.Fprintln(out, "All required checks passed")
				return nil
			}
			errs := make([]error, 0, len(failed))
			for _, r := range failed {
				errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
			}
			return fmt.Errorf("%d required check(s) failed: %w", len(failed), errors.Join(errs...))
		},
	}
}

func checkStatus(r preflight.Result) string {
	switch {
	case r.Passed:
		return "OK"
	case r.Optional:
		return "WARN"
	default:
		return "FAIL"
	}
}

func renderCheckTable(results []preflight.Result, colorize bool) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{r.Name, checkStatus(r), r.Detail})
	}
	var colors cellColor
	if colorize {
		colors = func(row, column int, value string) text.Colors {
			if column != 1 {
				return nil
			}
			switch value {
			case "OK":
				return text.Colors{text.FgGreen}
			case "WARN":
				return text.Colors{text.FgYellow}
			default:
				return text.Colors{text.FgRed}
			}
		}
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil, colors)
}
