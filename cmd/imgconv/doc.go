// Package main hosts the imgconv CLI.
//
// Each invocation is one session: input files are added to an in-memory (or
// spilled) item table, converted with the session settings, and exported to
// the output directory either one file at a time or as a single stored ZIP.
// Nothing outlives the process except the exported files and the session log.
package main
