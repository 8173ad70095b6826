package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisDispatcher wraps another dispatcher and mirrors every published
// event onto a Redis pub/sub channel for external consumers. Publish
// failures are logged, never surfaced: event fan-out must not fail the
// originating request.
type redisDispatcher struct {
	inner   Dispatcher
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisDispatcher decorates inner with Redis pub/sub mirroring.
// With a nil client the inner dispatcher is returned unchanged.
func NewRedisDispatcher(inner Dispatcher, client *redis.Client, channel string, logger *zap.Logger) Dispatcher {
	if client == nil {
		return inner
	}
	return &redisDispatcher{inner: inner, client: client, channel: channel, logger: logger}
}

func (d *redisDispatcher) Publish(ctx context.Context, event Event) error {
	if payload, err := json.Marshal(event); err != nil {
		d.logger.Warn("marshal event for redis", zap.Error(err))
	} else if err := d.client.Publish(ctx, d.channel, payload).Err(); err != nil {
		d.logger.Warn("publish event to redis", zap.Error(err), zap.String("channel", d.channel))
	}
	return d.inner.Publish(ctx, event)
}

func (d *redisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}
