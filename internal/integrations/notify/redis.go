// Package notify publishes request progress events for front-ends to show
// while a browsing request is being served.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-gateway/internal/domain"
)

const defaultPublishTimeout = 2 * time.Second

// redisAPI is the slice of *redis.Client the publisher needs.
type redisAPI interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher sends events with PUBLISH. Each publish runs in its own
// goroutine so a slow or missing Redis never delays a chat response.
type RedisPublisher struct {
	client  redisAPI
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRedisPublisher(client redisAPI, timeout time.Duration) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.New("notify: redis client must not be nil")
	}
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &RedisPublisher{client: client, timeout: timeout}, nil
}

// Dial parses a redis:// URL and returns a publisher using it.
func Dial(rawURL string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("notify: parse redis url: %w", err)
	}
	return NewRedisPublisher(redis.NewClient(opt), defaultPublishTimeout)
}

// Publish queues ev for delivery on channel and returns immediately. Delivery
// outlives the caller's cancellation but is bounded by the publish timeout.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, ev domain.StatusEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("status event not encodable", "type", ev.Type, "err", err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
			slog.Warn("status event publish failed", "channel", channel, "type", ev.Type, "session_id", ev.SessionID, "err", err)
		}
	}()
}

// Close waits for in-flight publishes and closes the underlying client.
func (p *RedisPublisher) Close() error {
	p.wg.Wait()
	if c, ok := p.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Noop drops every event. It is used when no Redis URL is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, domain.StatusEvent) {}

func (Noop) Close() error { return nil }
