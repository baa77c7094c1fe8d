package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"imgconv/internal/blob"
	"imgconv/internal/fileutil"
	"imgconv/internal/logging"
	"imgconv/internal/preflight"
	"imgconv/internal/services"
	"imgconv/internal/stage"
)

const (
	lockFileName   = ".imgconv.lock"
	lockRetryDelay = 50 * time.Millisecond
	exportFileMode = 0o644
)

// ErrSaverUnavailable reports that a save mechanism cannot be used at all,
// as opposed to a save that was attempted and failed.
var ErrSaverUnavailable = errors.New("save target unavailable")

// Saver persists a payload under a suggested name and returns where it went.
type Saver interface {
	Save(ctx context.Context, name string, payload blob.Blob) (string, error)
}

// DirSaver writes into a directory under an advisory lock so concurrent
// imgconv processes never pick the same file name. Existing files are kept;
// collisions get " (n)" suffixes.
type DirSaver struct {
	dir    string
	label  string
	logger *slog.Logger
}

// NewDirSaver saves into dir, creating it on first use.
func NewDirSaver(dir string, logger *slog.Logger) *DirSaver {
	return &DirSaver{dir: strings.TrimSpace(dir), label: "Output directory", logger: logging.NewComponentLogger(logger, "export")}
}

// NewDownloadSaver saves into the user's downloads directory. It backs the
// fallback path of Exporter and never creates the directory.
func NewDownloadSaver(dir string, logger *slog.Logger) *DownloadSaver {
	return &DownloadSaver{DirSaver{dir: strings.TrimSpace(dir), label: "Downloads directory", logger: logging.NewComponentLogger(logger, "export")}}
}

// Dir returns the target directory.
func (s *DirSaver) Dir() string {
	return s.dir
}

// Save implements Saver.
func (s *DirSaver) Save(ctx context.Context, name string, payload blob.Blob) (string, error) {
	if s.dir == "" {
		return "", fmt.Errorf("%w: %s not configured", ErrSaverUnavailable, strings.ToLower(s.label))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSaverUnavailable, err)
	}
	return s.save(ctx, name, payload)
}

func (s *DirSaver) save(ctx context.Context, name string, payload blob.Blob) (string, error) {
	lock := flock.New(filepath.Join(s.dir, lockFileName))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", services.Wrap(services.ErrSave, "export", "lock", s.dir, err)
	}
	if !locked {
		return "", services.Wrap(services.ErrSave, "export", "lock", s.dir, errors.New("lock not acquired"))
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Debug("export lock release failed", logging.Error(err))
		}
	}()

	path, err := fileutil.WriteUnique(s.dir, name, payload.Bytes(), exportFileMode)
	if err != nil {
		return "", services.Wrap(services.ErrSave, "export", "write", name, err)
	}
	s.logger.Debug("file saved",
		logging.String("name", filepath.Base(path)),
		logging.String("mime", payload.MIME()),
		logging.Int64("output_bytes", payload.Size()),
	)
	return path, nil
}

// HealthCheck reports whether the directory is writable.
func (s *DirSaver) HealthCheck(context.Context) stage.Health {
	result := preflight.CheckDirectoryAccess(s.label, s.dir)
	if !result.Passed {
		return stage.Unhealthy(s.label, result.Detail)
	}
	return stage.Health{Name: s.label, Ready: true, Detail: result.Detail}
}

// DownloadSaver is the fallback save mechanism.
type DownloadSaver struct {
	DirSaver
}

// Save implements Saver. A missing downloads directory makes the fallback
// unavailable rather than being created.
func (s *DownloadSaver) Save(ctx context.Context, name string, payload blob.Blob) (string, error) {
	if s.dir == "" {
		return "", fmt.Errorf("%w: downloads directory not configured", ErrSaverUnavailable)
	}
	info, err := os.Stat(s.dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: downloads directory %s missing", ErrSaverUnavailable, s.dir)
	}
	return s.save(ctx, name, payload)
}
