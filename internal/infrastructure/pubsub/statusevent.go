// Package pubsub relays endpoint status changes between instances over
// Redis Pub/Sub, so a manual check in one session is reflected everywhere.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hyperfleet/internal/shared/biztime"
	"hyperfleet/internal/shared/goroutine"
	"hyperfleet/internal/shared/logger"
)

const statusChannel = "hyperfleet:status"

// StatusUpdate is a partial endpoint status update pushed by another actor
// (another session or scheduler instance). LastCheckedAt is the
// server-assigned timestamp the reconciler's freshness rule compares on.
type StatusUpdate struct {
	EndpointID           uint    `json:"endpoint_id"`
	State                string  `json:"state"`
	SuccessRate          float64 `json:"success_rate"`
	LastCheckedAt        int64   `json:"last_checked_at"` // unix milliseconds
	LastError            string  `json:"last_error,omitempty"`
	CurrentTimeoutMs     uint32  `json:"current_timeout_ms,omitempty"`
	RecommendedTimeoutMs uint32  `json:"recommended_timeout_ms,omitempty"`
	InstanceID           string  `json:"instance_id,omitempty"` // source instance, to avoid self-delivery
}

// CheckedAt returns the update's server-assigned timestamp.
func (u *StatusUpdate) CheckedAt() time.Time {
	return time.UnixMilli(u.LastCheckedAt).UTC()
}

// StatusPublisher publishes local status changes for other instances.
type StatusPublisher interface {
	PublishStatusUpdate(ctx context.Context, update StatusUpdate) error
}

// StatusSubscriber delivers externally pushed status updates.
type StatusSubscriber interface {
	SubscribeStatusUpdates(ctx context.Context, handler func(update StatusUpdate)) error
}

// StatusBus combines publisher and subscriber interfaces.
type StatusBus interface {
	StatusPublisher
	StatusSubscriber
}

// RedisStatusBus implements StatusBus using Redis Pub/Sub.
type RedisStatusBus struct {
	client     *redis.Client
	logger     logger.Interface
	instanceID string // unique ID for this instance to avoid self-delivery
}

// NewRedisStatusBus creates a new Redis-based status bus.
func NewRedisStatusBus(client *redis.Client, logger logger.Interface) *RedisStatusBus {
	return &RedisStatusBus{
		client:     client,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// PublishStatusUpdate publishes a status update to Redis.
// The instance ID is automatically set to avoid self-delivery.
func (b *RedisStatusBus) PublishStatusUpdate(ctx context.Context, update StatusUpdate) error {
	if update.LastCheckedAt == 0 {
		update.LastCheckedAt = biztime.NowUTC().UnixMilli()
	}
	update.InstanceID = b.instanceID

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}

	if err := b.client.Publish(ctx, statusChannel, data).Err(); err != nil {
		b.logger.Errorw("failed to publish status update",
			"endpoint_id", update.EndpointID,
			"error", err,
		)
		return fmt.Errorf("failed to publish status update: %w", err)
	}

	b.logger.Debugw("status update published",
		"endpoint_id", update.EndpointID,
		"state", update.State,
	)
	return nil
}

// SubscribeStatusUpdates subscribes to status updates from Redis.
// Updates published by this instance are automatically filtered out.
func (b *RedisStatusBus) SubscribeStatusUpdates(ctx context.Context, handler func(update StatusUpdate)) error {
	return b.subscribeWithReconnect(ctx, statusChannel, func(payload string) {
		var update StatusUpdate
		if err := json.Unmarshal([]byte(payload), &update); err != nil {
			b.logger.Warnw("failed to unmarshal status update",
				"payload", payload,
				"error", err,
			)
			return
		}

		// Skip updates from own instance to avoid re-applying local probes
		if update.InstanceID == b.instanceID {
			return
		}

		handler(update)
	})
}

// subscribeWithReconnect wraps subscribe with automatic reconnection and exponential backoff.
func (b *RedisStatusBus) subscribeWithReconnect(ctx context.Context, channel string, handler func(payload string)) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		err := b.subscribe(ctx, channel, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warnw("status subscription disconnected, reconnecting",
			"channel", channel,
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func (b *RedisStatusBus) subscribe(ctx context.Context, channel string, handler func(payload string)) error {
	pubsub := b.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	_, err := pubsub.Receive(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	b.logger.Infow("subscribed to status channel",
		"channel", channel,
	)

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			b.logger.Infow("status subscriber stopped",
				"channel", channel,
				"reason", ctx.Err(),
			)
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("status channel closed",
					"channel", channel,
				)
				return nil
			}

			goroutine.SafeGo(b.logger, "status-update-handler", func() {
				handler(msg.Payload)
			})
		}
	}
}
