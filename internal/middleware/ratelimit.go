// File: internal/middleware/ratelimit.go
package middleware

import (
    "encoding/json"
    "fmt"
    "net/http"

    "github.com/iyunix/go-chatreveal/internal/logger"
    "github.com/iyunix/go-chatreveal/internal/ratelimit"
)

// RateLimitMiddleware rejects clients that exceed limiter with 429.
func RateLimitMiddleware(limiter *ratelimit.MemoryRateLimiter, name string, log logger.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            clientIP := ratelimit.GetClientIP(r)
            allowed, info := limiter.Allow(clientIP)

            w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
            w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
            w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))

            if !allowed {
                log.Warn("rate limited", "scope", name, "client_ip", clientIP, "banned", info.Banned)

                if info.RetryAfter > 0 {
                    w.Header().Set("Retry-After", fmt.Sprintf("%.0f", info.RetryAfter.Seconds()))
                }
                w.Header().Set("Content-Type", "application/json")
                w.WriteHeader(http.StatusTooManyRequests)
                _ = json.NewEncoder(w).Encode(map[string]interface{}{
                    "error":      "Too many messages. Please slow down.",
                    "retryAfter": int(info.RetryAfter.Seconds()),
                })
                return
            }

            next.ServeHTTP(w, r)
        })
    }
}
