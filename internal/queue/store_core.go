package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"imgconv/internal/config"
)

// Store manages session items backed by SQLite.
type Store struct {
	db    *sql.DB
	path  string
	spill bool
}

const (
	memoryPath              = ":memory:"
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open creates the session store. With an empty spill directory the
// database lives in memory; otherwise a uniquely named file is created in
// that directory and removed again by Close.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil || strings.TrimSpace(cfg.Paths.SpillDir) == "" {
		return OpenMemory()
	}
	if err := os.MkdirAll(cfg.Paths.SpillDir, 0o755); err != nil {
		return nil, fmt.Errorf("create spill directory: %w", err)
	}
	path := filepath.Join(cfg.Paths.SpillDir, "session-"+uuid.NewString()+".db")
	return open(path, true)
}

// OpenMemory creates an in-memory session store.
func OpenMemory() (*Store, error) {
	return open(memoryPath, false)
}

func open(path string, spill bool) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps an in-memory database alive and serialises
	// access to a spill file.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if spill {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous = OFF")
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, spill: spill}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		if spill {
			store.removeSpill()
		}
		return nil, err
	}
	return store, nil
}

// Path returns the database location (":memory:" for in-memory stores).
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the database and removes the spill file, if any.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.spill {
		s.removeSpill()
	}
	return err
}

func (s *Store) removeSpill() {
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		_ = os.Remove(s.path + suffix)
	}
}
