// File: internal/middleware/owner.go
package middleware

import (
    "context"
    "net/http"
    "strings"
)

const maxUserIDLength = 128

// Owner attaches the chat owner to the request context. The owner comes from
// the X-User-ID header and falls back to defaultUserID.
func Owner(defaultUserID string) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
            if userID == "" || len(userID) > maxUserIDLength {
                userID = defaultUserID
            }
            ctx := context.WithValue(r.Context(), UserIDKey, userID)
            next.ServeHTTP(w, r.WithContext(ctx))
        })
    }
}
