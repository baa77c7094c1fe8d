// Package notifications delivers conversion events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never branch on whether notifications are enabled. Batch and error
// events can be switched off individually, and batches smaller than the
// configured minimum stay silent.
package notifications
