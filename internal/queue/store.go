package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"imgconv/internal/blob"
)

// Add inserts a ready item for file. Inline file data is copied into the
// database; path-backed files are referenced by path.
func (s *Store) Add(ctx context.Context, file blob.File, previewHandle string) (*Item, error) {
	now := timestamp()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO items (
            name, declared_type, size, source_path, source_data, preview_handle,
            status, generation, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		file.Name,
		file.Type,
		file.Size(),
		nullableString(file.Path),
		nullableBytes(file.Data),
		nullableString(previewHandle),
		StatusReady,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an item by identifier. A missing item yields nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns items in insertion order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + itemColumns + ` FROM items`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		args = statusArgs(statuses)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	return items, nil
}

// Completed returns the items holding an output, in insertion order.
func (s *Store) Completed(ctx context.Context) ([]*Item, error) {
	return s.List(ctx, StatusDone)
}

// Count returns the number of items in the session.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// MarkConverting moves a ready, done, or failed item to converting and
// drops any previous output or error.
func (s *Store) MarkConverting(ctx context.Context, id int64) error {
	return s.transition(ctx, id, "mark converting",
		`UPDATE items
         SET status = ?, output_data = NULL, output_mime = NULL, output_size = NULL,
             error_message = NULL, updated_at = ?
         WHERE id = ? AND status IN (?, ?, ?)`,
		StatusConverting, timestamp(), id, StatusReady, StatusDone, StatusError,
	)
}

// MarkDone stores the output of a converting item. All output fields are
// written together.
func (s *Store) MarkDone(ctx context.Context, id int64, out blob.Blob, generation uint64) error {
	if out.Size() == 0 {
		return fmt.Errorf("mark done: item %d: empty output", id)
	}
	return s.transition(ctx, id, "mark done",
		`UPDATE items
         SET status = ?, output_data = ?, output_mime = ?, output_size = ?,
             generation = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusDone, out.Bytes(), out.MIME(), out.Size(), int64(generation), timestamp(), id, StatusConverting,
	)
}

// MarkFailed records a conversion error for a converting item.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string, generation uint64) error {
	if message == "" {
		message = "conversion failed"
	}
	return s.transition(ctx, id, "mark failed",
		`UPDATE items
         SET status = ?, output_data = NULL, output_mime = NULL, output_size = NULL,
             generation = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusError, int64(generation), message, timestamp(), id, StatusConverting,
	)
}

// ResetOutputs returns every item to ready, clearing outputs and errors.
func (s *Store) ResetOutputs(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE items
         SET status = ?, output_data = NULL, output_mime = NULL, output_size = NULL,
             error_message = NULL, updated_at = ?`,
		StatusReady, timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("reset outputs: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes an item by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all items. Identifiers keep increasing afterwards.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM items`)
	if err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

func (s *Store) transition(ctx context.Context, id int64, op, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected > 0 {
		return nil
	}
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%s: item %d: %w", op, id, ErrNotFound)
	}
	return fmt.Errorf("%s: item %d is %s: %w", op, id, item.Status, ErrInvalidTransition)
}
