// Package export saves converted outputs, one file at a time or bundled
// into a single stored ZIP archive.
//
// Saving goes through a primary Saver (the configured output directory). When
// that saver is missing or reports ErrSaverUnavailable the Exporter falls back
// to the downloads directory, re-typing the payload as a generic binary the
// way a browser download link would.
package export
