package workflow

import (
	"context"
	"errors"

	"imgconv/internal/logging"
)

// notify logs a failed notification. Notifications never fail an operation.
func (m *Manager) notify(ctx context.Context, event string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		m.logger.Debug("notification skipped; context cancelled", logging.String("event", event))
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, m.logger), "notification failed", "notification_failed",
		logging.String("event", event),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		logging.String(logging.FieldImpact, "push notification not delivered"),
	)
}
