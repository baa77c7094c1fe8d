// Package preflight provides readiness checks for the directories, encoders,
// and notification endpoint imgconv depends on.
//
// The CLI "imgconv check" command renders RunAll as a table, and "imgconv
// convert" runs the directory checks before touching any input so a doomed
// batch fails before its first encode.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
