// File: internal/middleware/recovery.go
package middleware

import (
    "net/http"
    "runtime/debug"

    "github.com/iyunix/go-chatreveal/internal/logger"
)

func RecoverPanic(log logger.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            defer func() {
                if err := recover(); err != nil {
                    if err == http.ErrAbortHandler {
                        panic(err)
                    }
                    log.Error("panic recovered", "error", err, "path", r.URL.Path, "stack", string(debug.Stack()))

                    w.Header().Set("Connection", "close")
                    w.Header().Set("Content-Type", "application/json")
                    w.WriteHeader(http.StatusInternalServerError)
                    _, _ = w.Write([]byte(`{"error":"⚠️ Server error"}`))
                }
            }()

            next.ServeHTTP(w, r)
        })
    }
}
