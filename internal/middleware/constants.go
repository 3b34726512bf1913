// File: internal/middleware/constants.go
package middleware

import "context"

// Context keys for middleware communication
type contextKey string

const (
    UserIDKey    contextKey = "user_id"
    RequestIDKey contextKey = "request_id"
)

const (
    HeaderRequestID = "X-Request-ID"
    HeaderUserID    = "X-User-ID"
)

// UserIDFrom returns the owner placed on ctx by Owner.
func UserIDFrom(ctx context.Context) string {
    id, _ := ctx.Value(UserIDKey).(string)
    return id
}

func RequestIDFrom(ctx context.Context) string {
    id, _ := ctx.Value(RequestIDKey).(string)
    return id
}
