package models

import "context"

// SessionContext is the authenticated identity established by a successful
// login. It is an explicit value: the auth service returns it, the web layer
// transmits it (cookie), and every privileged operation receives it as an
// argument rather than reading ambient state.
type SessionContext struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

type sessionContextKey struct{}

// WithSession attaches a SessionContext to the context
func WithSession(ctx context.Context, session SessionContext) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFromContext extracts the SessionContext, if one is attached
func SessionFromContext(ctx context.Context) (SessionContext, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(SessionContext)
	return session, ok
}
