package queue

import (
	"strings"
	"time"

	"imgconv/internal/blob"
)

// Status represents the lifecycle of a session item.
type Status string

const (
	StatusReady      Status = "ready"
	StatusConverting Status = "converting"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

var allStatuses = []Status{StatusReady, StatusConverting, StatusDone, StatusError}

// AllStatuses returns the statuses in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status, reporting whether it is known.
func ParseStatus(value string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range allStatuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// Item is one input file within the session.
type Item struct {
	ID            int64
	Name          string
	DeclaredType  string
	Size          int64
	SourcePath    string
	SourceData    []byte
	PreviewHandle string
	Status        Status
	Output        *blob.Blob
	Generation    uint64
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// File rebuilds the input descriptor the item was added from.
func (i *Item) File() blob.File {
	if i.SourceData != nil {
		return blob.FromBytes(i.Name, i.DeclaredType, i.SourceData)
	}
	return blob.File{Name: i.Name, Type: i.DeclaredType, Path: i.SourcePath}.WithSize(i.Size)
}

// HasOutput reports whether the item carries a converted result.
func (i *Item) HasOutput() bool {
	return i != nil && i.Output != nil
}

// IsCurrent reports whether the item is done under the given settings
// generation.
func (i *Item) IsCurrent(generation uint64) bool {
	return i != nil && i.Status == StatusDone && i.Output != nil && i.Generation == generation
}
