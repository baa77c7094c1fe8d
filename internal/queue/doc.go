// Package queue keeps the items of one conversion session in SQLite.
//
// The Store lives only as long as the session. By default the database is
// in memory; when a spill directory is configured it is a temporary file
// that Close removes. Either way nothing survives the process.
//
// Item ids come from an AUTOINCREMENT key and are never handed out twice,
// even after Clear. Output bytes, type, and size are written in one
// statement and a CHECK constraint rejects rows where only some of them are
// set, so an item either has a complete output or none.
//
// Status changes go through the Mark* methods, which only apply when the item
// is in a state the transition allows; anything else is ErrInvalidTransition.
package queue
