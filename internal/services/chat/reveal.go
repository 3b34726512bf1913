// File: internal/services/chat/reveal.go
package chat

import (
    "context"
    "strings"
    "sync"
)

// Reveal carries the growing text of a bot reply from the orchestrator to a
// single consumer. It keeps only the latest value: publishing never blocks,
// and a slow consumer skips intermediate prefixes but always sees the last
// one before the stream ends.
type Reveal struct {
    mu      sync.Mutex
    latest  string
    version int
    seen    int
    closed  bool
    notify  chan struct{}
}

func NewReveal() *Reveal {
    return &Reveal{notify: make(chan struct{})}
}

func (r *Reveal) publish(text string) {
    if r == nil {
        return
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.closed {
        return
    }
    r.latest = text
    r.version++
    close(r.notify)
    r.notify = make(chan struct{})
}

func (r *Reveal) close() {
    if r == nil {
        return
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.closed {
        return
    }
    r.closed = true
    close(r.notify)
}

// Next blocks until a value newer than the last one returned is available.
// It reports false once the stream is closed and drained, or ctx is done.
func (r *Reveal) Next(ctx context.Context) (string, bool) {
    for {
        r.mu.Lock()
        if r.version > r.seen {
            r.seen = r.version
            text := r.latest
            r.mu.Unlock()
            return text, true
        }
        if r.closed {
            r.mu.Unlock()
            return "", false
        }
        wait := r.notify
        r.mu.Unlock()

        select {
        case <-wait:
        case <-ctx.Done():
            return "", false
        }
    }
}

// Final returns the last published value.
func (r *Reveal) Final() string {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.latest
}

// drained reports whether the producer has finished and the consumer has
// already taken the last value.
func (r *Reveal) drained() bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.closed && r.seen == r.version
}

// Deltas calls fn with each newly revealed suffix until the stream ends, so
// the concatenation of all deltas is always a prefix of the reply. It returns
// fn's first error, or ctx's error if ctx ends first.
func (r *Reveal) Deltas(ctx context.Context, fn func(delta string) error) error {
    written := ""
    for {
        text, ok := r.Next(ctx)
        if !ok {
            return ctx.Err()
        }
        if len(text) <= len(written) || !strings.HasPrefix(text, written) {
            continue
        }
        if err := fn(text[len(written):]); err != nil {
            return err
        }
        written = text
    }
}
