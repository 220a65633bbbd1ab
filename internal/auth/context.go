package auth

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader carries the identity resolved by the fronting identity provider.
const UserIDHeader = "X-User-ID"

type userIDKey struct{}

// WithUserID stores the signed-in user on the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the signed-in user, or an empty string.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

// Identity copies the user header onto the request context. Anonymous requests pass through.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := strings.TrimSpace(r.Header.Get(UserIDHeader)); userID != "" {
			r = r.WithContext(WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}
