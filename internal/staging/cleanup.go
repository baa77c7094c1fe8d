// Package staging reclaims spill files that crashed sessions left behind.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imgconv/internal/logging"
)

// SpillPattern matches session databases and their SQLite side files.
const SpillPattern = "session-*.db*"

// CleanStaleResult contains the outcome of a stale spill cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes spill files in spillDir not modified within maxAge.
// Live sessions keep touching their database, so only abandoned files age out.
func CleanStale(ctx context.Context, spillDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	spillDir = strings.TrimSpace(spillDir)
	if spillDir == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(spillDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: spillDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(SpillPattern, entry.Name()); !ok {
			continue
		}

		path := filepath.Join(spillDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale spill file", "spill_cleanup_failed",
				logging.String("spill_path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check spill_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed stale spill file",
			logging.String("spill_path", path),
			logging.Int64("input_bytes", info.Size()),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "spill_cleanup"),
		)
	}
	return result
}
