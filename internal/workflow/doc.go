// Package workflow owns the session's items and moves them through the
// conversion state machine.
//
// Items start ready, become converting for exactly one attempt, and end done
// or error. The Manager admits one operation at a time through a busy flag;
// a second caller gets ErrBusy instead of waiting. Conversion settings carry
// a generation counter, and an output is only trusted when its recorded
// generation matches the current one, so a settings change invalidates every
// cached result in one step.
//
// Convert-all is strictly sequential. Each mutating operation notifies the
// Observer so a view can refresh, and batch start/completion is published
// through the notifications service.
package workflow
