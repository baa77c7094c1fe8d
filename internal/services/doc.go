// Package services defines shared utilities consumed by the conversion
// pipeline, the item state machine, and export.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (rejected input, decode, encoder, codec, archive, save) so callers can
//     surface one message per item without losing the cause.
//
// Use these helpers when wiring new conversion logic so error handling and
// observability stay uniform across the pipeline.
package services
