package session

import (
	"context"
	"errors"
	"log"
	"net/http"

	sessionModel "github.com/zhouzirui/survey-chat/backend/internal/model/session"
)

type contextKey struct{}

// WithSession attaches an authenticated session to ctx.
func WithSession(ctx context.Context, s sessionModel.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session loaded by Middleware, if any.
func FromContext(ctx context.Context) (sessionModel.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(sessionModel.Session)
	return s, ok
}

// Middleware loads the request's session into the context. Requests without one pass through untouched.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		item, err := m.Load(r)
		switch {
		case err == nil:
			r = r.WithContext(WithSession(r.Context(), item))
		case !errors.Is(err, ErrNoSession):
			log.Printf("[session] %v", err)
		}
		next.ServeHTTP(w, r)
	})
}
