// File: internal/middleware/logger.go
package middleware

import (
    "net/http"
    "time"

    "github.com/gorilla/mux"

    "github.com/iyunix/go-chatreveal/internal/logger"
    "github.com/iyunix/go-chatreveal/internal/metrics"
)

// Logging logs each request once it completes and records HTTP metrics.
func Logging(log logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            start := time.Now()
            rec := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

            next.ServeHTTP(rec, r)

            route := r.URL.Path
            if cur := mux.CurrentRoute(r); cur != nil {
                if tpl, err := cur.GetPathTemplate(); err == nil {
                    route = tpl
                }
            }
            elapsed := time.Since(start)
            m.ObserveHTTP(r.Method, route, rec.statusCode, elapsed)

            log.Info("request",
                "method", r.Method,
                "path", r.URL.RequestURI(),
                "status", rec.statusCode,
                "remote", r.RemoteAddr,
                "request_id", RequestIDFrom(r.Context()),
                "duration", elapsed.String(),
            )
        })
    }
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
    http.ResponseWriter
    statusCode  int
    wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
    if !rw.wroteHeader {
        rw.statusCode = code
        rw.wroteHeader = true
    }
    rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
    rw.wroteHeader = true
    return rw.ResponseWriter.Write(b)
}

// Flush keeps streamed responses working through the wrapper.
func (rw *responseWriter) Flush() {
    if f, ok := rw.ResponseWriter.(http.Flusher); ok {
        f.Flush()
    }
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
