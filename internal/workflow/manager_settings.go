package workflow

import (
	"context"

	"imgconv/internal/imaging"
	"imgconv/internal/logging"
	"imgconv/internal/services"
)

// Settings returns the current conversion settings.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// SetFormat changes the output format.
func (m *Manager) SetFormat(ctx context.Context, format imaging.Format) (Settings, error) {
	current := m.Settings()
	return m.SetSettings(ctx, format, current.Quality)
}

// SetQuality changes the quality fraction.
func (m *Manager) SetQuality(ctx context.Context, quality float64) (Settings, error) {
	current := m.Settings()
	return m.SetSettings(ctx, current.Format, quality)
}

// SetSettings validates and applies format and quality. A change bumps the
// generation and returns every item to ready; applying identical values is a
// no-op.
func (m *Manager) SetSettings(ctx context.Context, format imaging.Format, quality float64) (Settings, error) {
	next := imaging.Settings{Format: format, Quality: quality}
	if err := next.Validate(); err != nil {
		return m.Settings(), services.Wrap(services.ErrConfiguration, "workflow", "set settings", "", err)
	}

	release, err := m.acquire("set settings")
	if err != nil {
		return m.Settings(), err
	}
	defer release()

	m.mu.Lock()
	if m.settings.Format == format && m.settings.Quality == quality {
		current := m.settings
		m.mu.Unlock()
		return current, nil
	}
	m.settings.Format = format
	m.settings.Quality = quality
	m.settings.Generation++
	updated := m.settings
	m.mu.Unlock()

	reset, err := m.store.ResetOutputs(ctx)
	if err != nil {
		return updated, err
	}
	m.logger.Info("conversion settings changed",
		logging.String("format", string(updated.Format)),
		logging.Float64("quality", updated.Quality),
		logging.Uint64("generation", updated.Generation),
		logging.Int64("reset_items", reset),
		logging.String(logging.FieldEventType, "settings_changed"),
	)
	m.changed(ctx)
	return updated, nil
}
