package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextSessionKey ctxKey = "session"

// Session is the request-scoped identity extracted from a verified token.
type Session struct {
	UserID         int64
	Email          string
	OrganizationID *int64
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	session, ok := ctx.Value(ContextSessionKey).(*Session)
	return session, ok && session != nil
}

func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, ContextSessionKey, session)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
