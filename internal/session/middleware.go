package session

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const (
	storeKey   contextKey = "sessionStore"
	bindingKey contextKey = "sessionBinding"
)

// binding lets handlers reissue the session cookie
type binding struct {
	manager *Manager
	cookie  CookieConfig
}

// CookieConfig configures the session id cookie
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Middleware resolves the session id cookie to a Store and attaches it to the request context.
// Requests without a valid cookie get a new session id.
func Middleware(m *Manager, cookie CookieConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(cookie.Name); err == nil && ValidSessionID(c.Value) {
				sid = c.Value
			}
			if sid == "" {
				sid = m.NewSessionID()
			}

			// refresh the cookie on every request so its lifetime slides with activity
			setCookie(w, cookie, sid)

			store := m.Get(r.Context(), sid)
			ctx := WithStore(r.Context(), store)
			ctx = context.WithValue(ctx, bindingKey, &binding{manager: m, cookie: cookie})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithStore attaches a store to the context
func WithStore(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey, store)
}

// FromContext retrieves the store attached by Middleware
func FromContext(ctx context.Context) (*Store, bool) {
	store, ok := ctx.Value(storeKey).(*Store)
	return store, ok && store != nil
}

// RenewID moves the request's session to a fresh id and replaces the session cookie
// already set on w. It must run before the response is written.
// Without Middleware in front of the handler it does nothing and returns false.
func RenewID(w http.ResponseWriter, r *http.Request) bool {
	b, ok := r.Context().Value(bindingKey).(*binding)
	if !ok {
		return false
	}
	store, ok := FromContext(r.Context())
	if !ok {
		return false
	}

	newSID, _ := b.manager.Rotate(r.Context(), store.ID())
	setCookie(w, b.cookie, newSID)
	return true
}

// setCookie sets the session cookie, replacing one set earlier in the same response
func setCookie(w http.ResponseWriter, cookie CookieConfig, sid string) {
	header := w.Header()
	var kept []string
	for _, line := range header.Values("Set-Cookie") {
		if !strings.HasPrefix(line, cookie.Name+"=") {
			kept = append(kept, line)
		}
	}
	header.Del("Set-Cookie")
	for _, line := range kept {
		header.Add("Set-Cookie", line)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
