// File: internal/middleware/request_id.go
package middleware

import (
    "context"
    "net/http"

    "github.com/google/uuid"
)

// RequestID tags every request with an id, reusing an incoming X-Request-ID.
func RequestID(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        id := r.Header.Get(HeaderRequestID)
        if _, err := uuid.Parse(id); err != nil {
            id = uuid.NewString()
        }
        w.Header().Set(HeaderRequestID, id)
        ctx := context.WithValue(r.Context(), RequestIDKey, id)
        next.ServeHTTP(w, r.WithContext(ctx))
    })
}
