// Package config loads, normalizes, and validates imgconv configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as IMGCONV_OUTPUT_DIR.
// The Config type centralizes every knob the CLI needs: where outputs land,
// the default conversion settings, encoder tuning, logging, and ntfy
// notifications.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical formats, and clear validation errors.
package config
