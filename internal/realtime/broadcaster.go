// Package realtime fans reveal emissions out beyond the process that
// produced them.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/iyunix/go-chatreveal/internal/logger"
)

// RevealEvent is one emission of a reply being revealed.
type RevealEvent struct {
	ChatID uint   `json:"chat_id"`
	Text   string `json:"text"`
	Final  bool   `json:"final"`
}

type Broadcaster interface {
	Publish(ctx context.Context, event RevealEvent) error
}

// NopBroadcaster is used when no bus is configured.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(context.Context, RevealEvent) error { return nil }

// RedisBroadcaster publishes reveal events to a redis pub/sub channel.
type RedisBroadcaster struct {
	log     logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisBroadcaster(ctx context.Context, addr, channel string, log logger.Logger) (*RedisBroadcaster, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if log == nil {
		log = logger.NewNop()
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "chat:reveal"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBroadcaster{log: log, rdb: rdb, channel: channel}, nil
}

func (b *RedisBroadcaster) Channel() string { return b.channel }

func (b *RedisBroadcaster) Publish(ctx context.Context, event RevealEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis broadcaster not initialized")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Subscribe delivers events to onEvent until ctx is done. It returns once the
// subscription is confirmed; delivery happens on a background goroutine.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, onEvent func(RevealEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis broadcaster not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				event, err := DecodeEvent(m.Payload)
				if err != nil {
					b.log.Warn("bad reveal payload", "error", err)
					continue
				}
				onEvent(event)
			}
		}
	}()
	return nil
}

func (b *RedisBroadcaster) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func DecodeEvent(payload string) (RevealEvent, error) {
	var event RevealEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return RevealEvent{}, err
	}
	return event, nil
}
