// File: internal/ratelimit/ratelimit.go
package ratelimit

import (
    "net"
    "net/http"
    "strings"
    "sync"
    "time"
)

// Config holds rate limiting configuration
type Config struct {
    WindowSize    time.Duration // Time window for rate limiting
    MaxAttempts   int           // Maximum requests per window
    CleanupPeriod time.Duration // How often to clean up old entries
    BanDuration   time.Duration // Lockout after exceeding the limit; zero disables it
}

// DefaultSendConfig limits message sends to perMinute per client.
func DefaultSendConfig(perMinute int) *Config {
    if perMinute <= 0 {
        perMinute = 30
    }
    return &Config{
        WindowSize:    time.Minute,
        MaxAttempts:   perMinute,
        CleanupPeriod: 5 * time.Minute,
    }
}

type attemptRecord struct {
    Count     int
    FirstSeen time.Time
    BannedAt  *time.Time
}

// MemoryRateLimiter implements a fixed-window in-memory limiter keyed by
// client identifier.
type MemoryRateLimiter struct {
    config   *Config
    attempts map[string]*attemptRecord
    mu       sync.Mutex
    stopCh   chan struct{}
    stopOnce sync.Once
    now      func() time.Time
}

func NewMemoryRateLimiter(config *Config) *MemoryRateLimiter {
    if config == nil {
        config = DefaultSendConfig(0)
    }
    limiter := &MemoryRateLimiter{
        config:   config,
        attempts: make(map[string]*attemptRecord),
        stopCh:   make(chan struct{}),
        now:      time.Now,
    }
    if config.CleanupPeriod > 0 {
        go limiter.cleanupLoop()
    }
    return limiter
}

// RateLimitInfo contains information about rate limit status
type RateLimitInfo struct {
    Allowed    bool
    Limit      int
    Remaining  int
    ResetTime  time.Time
    RetryAfter time.Duration
    Banned     bool
}

// Allow counts one request for identifier and reports whether it may proceed.
func (rl *MemoryRateLimiter) Allow(identifier string) (bool, *RateLimitInfo) {
    rl.mu.Lock()
    defer rl.mu.Unlock()

    now := rl.now()
    limit := rl.config.MaxAttempts
    record, exists := rl.attempts[identifier]

    if record != nil && record.BannedAt != nil && now.Sub(*record.BannedAt) < rl.config.BanDuration {
        resetAt := record.BannedAt.Add(rl.config.BanDuration)
        return false, &RateLimitInfo{
            Limit:      limit,
            ResetTime:  resetAt,
            RetryAfter: resetAt.Sub(now),
            Banned:     true,
        }
    }

    if !exists || now.Sub(record.FirstSeen) >= rl.config.WindowSize {
        rl.attempts[identifier] = &attemptRecord{Count: 1, FirstSeen: now}
        return true, &RateLimitInfo{
            Allowed:   true,
            Limit:     limit,
            Remaining: limit - 1,
            ResetTime: now.Add(rl.config.WindowSize),
        }
    }

    record.Count++
    resetAt := record.FirstSeen.Add(rl.config.WindowSize)

    if record.Count > limit {
        if rl.config.BanDuration > 0 {
            banTime := now
            record.BannedAt = &banTime
            return false, &RateLimitInfo{
                Limit:      limit,
                ResetTime:  now.Add(rl.config.BanDuration),
                RetryAfter: rl.config.BanDuration,
                Banned:     true,
            }
        }
        return false, &RateLimitInfo{
            Limit:      limit,
            ResetTime:  resetAt,
            RetryAfter: resetAt.Sub(now),
        }
    }

    return true, &RateLimitInfo{
        Allowed:   true,
        Limit:     limit,
        Remaining: limit - record.Count,
        ResetTime: resetAt,
    }
}

func (rl *MemoryRateLimiter) cleanupLoop() {
    ticker := time.NewTicker(rl.config.CleanupPeriod)
    defer ticker.Stop()

    for {
        select {
        case <-ticker.C:
            rl.cleanup()
        case <-rl.stopCh:
            return
        }
    }
}

// cleanup removes expired records
func (rl *MemoryRateLimiter) cleanup() {
    rl.mu.Lock()
    defer rl.mu.Unlock()

    now := rl.now()
    for identifier, record := range rl.attempts {
        windowExpired := now.Sub(record.FirstSeen) >= rl.config.WindowSize
        banExpired := record.BannedAt == nil || now.Sub(*record.BannedAt) >= rl.config.BanDuration
        if windowExpired && banExpired {
            delete(rl.attempts, identifier)
        }
    }
}

// Close stops the cleanup goroutine
func (rl *MemoryRateLimiter) Close() {
    rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GetClientIP extracts the real client IP from request
func GetClientIP(r *http.Request) string {
    if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
        if ip := parseFirstIP(forwarded); ip != "" {
            return ip
        }
    }
    if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
        return realIP
    }
    ip, _, err := net.SplitHostPort(r.RemoteAddr)
    if err != nil {
        return r.RemoteAddr
    }
    return ip
}

// parseFirstIP extracts the first IP from a comma-separated list
func parseFirstIP(forwarded string) string {
    first, _, _ := strings.Cut(forwarded, ",")
    return strings.TrimSpace(first)
}
