package preflight

import (
	"context"

	"imgconv/internal/config"
	"imgconv/internal/stage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config and
// the supplied encoder health checkers.
func RunAll(ctx context.Context, cfg *config.Config, encoders ...stage.Checker) []Result {
	if cfg == nil {
		return nil
	}

	results := Directories(cfg)
	results = append(results, CheckEncoders(ctx, encoders...)...)

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Directories checks every directory imgconv writes to. The downloads
// directory only backs the export fallback, so its failure is optional.
func Directories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Paths.SpillDir != "" {
		results = append(results, CheckDirectoryAccess("Spill directory", cfg.Paths.SpillDir))
	}
	if cfg.Paths.DownloadsDir != "" {
		downloads := CheckDirectoryAccess("Downloads directory", cfg.Paths.DownloadsDir)
		downloads.Optional = true
		results = append(results, downloads)
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
