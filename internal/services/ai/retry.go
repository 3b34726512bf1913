// File: internal/services/ai/retry.go
package ai

import (
    "context"
    "errors"
    "net/http"
    "time"
)

type retryGenerator struct {
    next       Generator
    maxRetries int
    delay      time.Duration
}

// WithRetry wraps g so transient failures are retried up to maxRetries
// times, waiting delay between attempts. ctx bounds all attempts together.
func WithRetry(g Generator, maxRetries int, delay time.Duration) Generator {
    return &retryGenerator{next: g, maxRetries: maxRetries, delay: delay}
}

func (r *retryGenerator) Name() string { return r.next.Name() }

func (r *retryGenerator) Generate(ctx context.Context, history []Turn) (string, error) {
    var lastErr error
    for attempt := 0; attempt <= r.maxRetries; attempt++ {
        if attempt > 0 {
            timer := time.NewTimer(r.delay)
            select {
            case <-ctx.Done():
                timer.Stop()
                return "", lastErr
            case <-timer.C:
            }
        }

        reply, err := r.next.Generate(ctx, history)
        if err == nil {
            return reply, nil
        }
        lastErr = err
        if ctx.Err() != nil || !IsRetryable(err) {
            return "", err
        }
    }
    return "", lastErr
}

// IsRetryable reports whether err is a transient backend failure.
func IsRetryable(err error) bool {
    var aiErr *AIError
    if !errors.As(err, &aiErr) {
        return false
    }
    switch aiErr.Type {
    case ErrTypeNetwork:
        return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
    case ErrTypeProvider:
        return aiErr.Code == http.StatusTooManyRequests || aiErr.Code >= http.StatusInternalServerError
    default:
        return false
    }
}
