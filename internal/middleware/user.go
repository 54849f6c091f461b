package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserHeader carries the id returned by login.
const UserHeader = "X-User-ID"

// userQueryParam identifies the user where headers cannot be set (EventSource, WebSocket).
const userQueryParam = "user"

type userKey struct{}

// Identify stores the caller's user id in the request context. It does not
// reject anonymous requests; handlers decide whether a user is required.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserHeader))
		if id == "" {
			id = strings.TrimSpace(r.URL.Query().Get(userQueryParam))
		}
		if id != "" {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns ctx carrying id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserID returns the caller's id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}
