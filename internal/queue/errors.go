package queue

import "errors"

var (
	// ErrNotFound is returned when an item id does not exist in the session.
	ErrNotFound = errors.New("item not found")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the item's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
