package queue

import (
	"database/sql"
	"errors"
	"time"

	"imgconv/internal/blob"
)

const itemColumns = "id, name, declared_type, size, source_path, source_data, preview_handle, status, output_data, output_mime, output_size, generation, error_message, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id            int64
		name          string
		declaredType  string
		size          int64
		sourcePath    sql.NullString
		sourceData    []byte
		previewHandle sql.NullString
		statusStr     string
		outputData    []byte
		outputMIME    sql.NullString
		outputSize    sql.NullInt64
		generation    int64
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&name,
		&declaredType,
		&size,
		&sourcePath,
		&sourceData,
		&previewHandle,
		&statusStr,
		&outputData,
		&outputMIME,
		&outputSize,
		&generation,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:            id,
		Name:          name,
		DeclaredType:  declaredType,
		Size:          size,
		SourcePath:    sourcePath.String,
		SourceData:    sourceData,
		PreviewHandle: previewHandle.String,
		Status:        Status(statusStr),
		Generation:    uint64(generation),
		ErrorMessage:  errorMessage.String,
	}
	if outputMIME.Valid && outputData != nil {
		out := blob.New(outputData, outputMIME.String)
		item.Output = &out
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableBytes(value []byte) any {
	if value == nil {
		return nil
	}
	return value
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	return args
}
