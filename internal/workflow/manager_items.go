package workflow

import (
	"context"
	"fmt"
	"image"

	"imgconv/internal/blob"
	"imgconv/internal/logging"
	"imgconv/internal/queue"
	"imgconv/internal/services"
)

// Accepted reports whether mimeType is an input type the converter decodes.
func Accepted(mimeType string) bool {
	switch mimeType {
	case blob.TypeJPEG, blob.TypePNG:
		return true
	default:
		return false
	}
}

// Add filters files to JPEG and PNG, creating a ready item with a preview
// handle for each accepted file. Rejected files are reported in the result
// and do not stop the batch.
func (m *Manager) Add(ctx context.Context, files []blob.File) (AddResult, error) {
	release, err := m.acquire("add")
	if err != nil {
		return AddResult{}, err
	}
	defer release()

	var result AddResult
	defer func() {
		if len(result.Added) > 0 {
			m.changed(ctx)
		}
	}()

	for _, file := range files {
		mimeType := file.EffectiveType()
		if !Accepted(mimeType) {
			label := mimeType
			if label == "" {
				label = "unknown type"
			}
			rejectErr := services.Wrap(services.ErrInputRejected, "add", "filter",
				fmt.Sprintf("%s: %s is not a JPEG or PNG image", file.Name, label), nil)
			result.Rejected = append(result.Rejected, Rejection{Name: file.Name, Type: mimeType, Err: rejectErr})
			logging.WarnWithContext(m.logger, "input rejected", "input_rejected",
				logging.String("name", file.Name),
				logging.String("declared_type", mimeType),
				logging.String(logging.FieldErrorHint, "only JPEG and PNG inputs are supported"),
				logging.String(logging.FieldImpact, "file skipped; other files continue"),
			)
			continue
		}

		handle := m.previews.Create(file)
		item, err := m.store.Add(ctx, file, handle)
		if err != nil {
			m.previews.Revoke(handle)
			return result, fmt.Errorf("add %s: %w", file.Name, err)
		}
		result.Added = append(result.Added, item)
		m.logger.Debug("item added",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("name", item.Name),
			logging.Int64("input_bytes", item.Size),
		)
	}

	if len(result.Added) > 0 || len(result.Rejected) > 0 {
		m.logger.Info("files added",
			logging.Int("added", len(result.Added)),
			logging.Int("rejected", len(result.Rejected)),
			logging.String(logging.FieldEventType, "items_added"),
		)
	}
	return result, nil
}

// Items returns every item in insertion order.
func (m *Manager) Items(ctx context.Context) ([]*queue.Item, error) {
	return m.store.List(ctx)
}

// Item returns one item or queue.ErrNotFound.
func (m *Manager) Item(ctx context.Context, id int64) (*queue.Item, error) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", id, queue.ErrNotFound)
	}
	return item, nil
}

// Completed returns the items whose output is valid under the current
// settings.
func (m *Manager) Completed(ctx context.Context) ([]*queue.Item, error) {
	done, err := m.store.Completed(ctx)
	if err != nil {
		return nil, err
	}
	generation := m.Settings().Generation
	current := done[:0]
	for _, item := range done {
		if item.IsCurrent(generation) {
			current = append(current, item)
		}
	}
	return current, nil
}

// ClearOutputs returns every item to ready, discarding outputs and errors.
func (m *Manager) ClearOutputs(ctx context.Context) (int64, error) {
	release, err := m.acquire("clear outputs")
	if err != nil {
		return 0, err
	}
	defer release()

	reset, err := m.store.ResetOutputs(ctx)
	if err != nil {
		return 0, err
	}
	m.logger.Info("outputs cleared", logging.Int64("items", reset), logging.String(logging.FieldEventType, "outputs_cleared"))
	m.changed(ctx)
	return reset, nil
}

// ClearAll releases every preview handle and empties the session.
// Identifiers are not reused afterwards.
func (m *Manager) ClearAll(ctx context.Context) (int64, error) {
	release, err := m.acquire("clear all")
	if err != nil {
		return 0, err
	}
	defer release()

	removed, err := m.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	revoked := m.previews.RevokeAll()
	m.logger.Info("session cleared",
		logging.Int64("items", removed),
		logging.Int("previews_revoked", revoked),
		logging.String(logging.FieldEventType, "session_cleared"),
	)
	m.changed(ctx)
	return removed, nil
}

// Remove discards one item and revokes its preview handle.
func (m *Manager) Remove(ctx context.Context, id int64) (bool, error) {
	release, err := m.acquire("remove")
	if err != nil {
		return false, err
	}
	defer release()

	item, err := m.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return false, err
	}
	removed, err := m.store.Remove(ctx, id)
	if err != nil {
		return false, err
	}
	if item.PreviewHandle != "" {
		m.previews.Revoke(item.PreviewHandle)
	}
	m.changed(ctx)
	return removed, nil
}

// Dimensions returns the natural size of an item's input.
func (m *Manager) Dimensions(ctx context.Context, id int64) (int, int, error) {
	item, err := m.Item(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	return m.previews.Dimensions(item.PreviewHandle)
}

// Thumbnail renders an item's input scaled to fit maxDim.
func (m *Manager) Thumbnail(ctx context.Context, id int64, maxDim int) (*image.RGBA, error) {
	item, err := m.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.previews.Thumbnail(item.PreviewHandle, maxDim)
}
