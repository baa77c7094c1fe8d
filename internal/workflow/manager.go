package workflow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"imgconv/internal/config"
	"imgconv/internal/imaging"
	"imgconv/internal/logging"
	"imgconv/internal/notifications"
	"imgconv/internal/preview"
	"imgconv/internal/queue"
	"imgconv/internal/services"
)

// Manager coordinates the items of one conversion session.
type Manager struct {
	store     *queue.Store
	converter Converter
	previews  *preview.Registry
	notifier  notifications.Service
	observer  Observer
	logger    *slog.Logger

	itemTimeout time.Duration

	busy atomic.Bool

	mu       sync.RWMutex
	settings Settings
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithNotifier publishes batch events through n.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithObserver registers the view refresh callback.
func WithObserver(o Observer) ManagerOption {
	return func(m *Manager) { m.observer = o }
}

// WithItemTimeout bounds each item's conversion. Zero waits indefinitely.
func WithItemTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.itemTimeout = d
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logging.NewComponentLogger(logger, "workflow") }
}

// WithPreviews shares a preview registry with the caller.
func WithPreviews(r *preview.Registry) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.previews = r
		}
	}
}

// NewManager constructs a manager whose initial settings come from cfg.
func NewManager(cfg *config.Config, store *queue.Store, converter Converter, opts ...ManagerOption) (*Manager, error) {
	initial := Settings{Format: imaging.FormatWebP, Quality: 0.85}
	var timeout time.Duration
	if cfg != nil {
		format, err := imaging.ParseFormat(cfg.Conversion.Format)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "initial settings", "", err)
		}
		initial = Settings{Format: format, Quality: cfg.Conversion.Quality}
		timeout = time.Duration(cfg.Conversion.ItemTimeout) * time.Second
	}
	if err := initial.Conversion().Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "initial settings", "", err)
	}

	m := &Manager{
		store:       store,
		converter:   converter,
		notifier:    notifications.NewService(cfg),
		logger:      logging.NewComponentLogger(nil, "workflow"),
		itemTimeout: timeout,
		settings:    initial,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.previews == nil {
		m.previews = preview.NewRegistry(m.logger)
	}
	return m, nil
}

// Previews exposes the registry backing item preview handles.
func (m *Manager) Previews() *preview.Registry {
	return m.previews
}

// Busy reports whether an operation is in progress.
func (m *Manager) Busy() bool {
	return m.busy.Load()
}

// Close releases every preview handle. The store and encoders stay owned by
// the caller.
func (m *Manager) Close() {
	if n := m.previews.RevokeAll(); n > 0 {
		m.logger.Debug("previews released on close", logging.Int("count", n))
	}
}

// acquire sets the busy flag or fails fast when another operation holds it.
func (m *Manager) acquire(op string) (func(), error) {
	if !m.busy.CompareAndSwap(false, true) {
		return nil, services.Wrap(services.ErrBusy, "workflow", op, "", nil)
	}
	return func() { m.busy.Store(false) }, nil
}

func (m *Manager) changed(ctx context.Context) {
	if m.observer == nil {
		return
	}
	items, err := m.store.List(ctx)
	if err != nil {
		logging.WarnWithContext(m.logger, "view refresh skipped; item list unavailable", "refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "view may show stale items"),
		)
		return
	}
	m.observer.ItemsChanged(ctx, items)
}
