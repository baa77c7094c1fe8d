package services

import "context"

// Scope is the per-request annotation set carried on a context. Zero fields
// are unset.
type Scope struct {
	ItemID    int64
	Stage     string
	RequestID string
}

type scopeKey struct{}

// ScopeFromContext returns the annotations stored on ctx.
func ScopeFromContext(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s
}

func withScope(ctx context.Context, update func(*Scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := ScopeFromContext(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithItemID tags ctx with a session item id. Ids start at 1; zero or
// negative ids leave ctx unchanged.
func WithItemID(ctx context.Context, id int64) context.Context {
	if id <= 0 {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.ItemID = id })
}

// ItemIDFromContext reports the item id, if any.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	id := ScopeFromContext(ctx).ItemID
	return id, id > 0
}

// WithStage tags ctx with the workflow step ("convert", "export"). A blank
// stage leaves ctx unchanged.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.Stage = stage })
}

// StageFromContext reports the stage, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	stage := ScopeFromContext(ctx).Stage
	return stage, stage != ""
}

// WithRequestID tags ctx with the invocation's correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return withScope(ctx, func(s *Scope) { s.RequestID = id })
}

// RequestIDFromContext reports the correlation id, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id := ScopeFromContext(ctx).RequestID
	return id, id != ""
}
