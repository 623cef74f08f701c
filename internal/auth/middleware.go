package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/avelarde/devtrack/internal/session"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	UserIDContextKey   ContextKey = "user_id"
	UsernameContextKey ContextKey = "username"
)

// Middleware gates protected routes on a valid server-side session.
type Middleware struct {
	sessions   *session.Store
	cookieName string
	sessionTTL time.Duration
	secure     bool
}

func NewMiddleware(sessions *session.Store, cookieName string, sessionTTL time.Duration, secure bool) *Middleware {
	return &Middleware{
		sessions:   sessions,
		cookieName: cookieName,
		sessionTTL: sessionTTL,
		secure:     secure,
	}
}

// RequireSession resolves the session cookie and either passes the request
// through with the user identity in context or redirects to the login page.
// It must run before any handler touching user-scoped state.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := session.FromRequest(r, m.cookieName)

		sess, err := m.sessions.Get(r.Context(), sessionID)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		// Get slid the server-side expiry; re-issue the cookie so the
		// browser-side Max-Age countdown slides with it.
		session.SetCookie(w, m.cookieName, sessionID, m.sessionTTL, m.secure)

		ctx := context.WithValue(r.Context(), UserIDContextKey, sess.UserID)
		ctx = context.WithValue(ctx, UsernameContextKey, sess.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext extracts the authenticated user's ID from the context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(int64)
	return userID, ok
}

// UsernameFromContext extracts the authenticated user's name from the context.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameContextKey).(string)
	return username, ok
}
