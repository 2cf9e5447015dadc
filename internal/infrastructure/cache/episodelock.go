package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hyperfleet/internal/domain/alert"
)

// episodeLockKeyPrefix is the prefix for all episode notification locks
const episodeLockKeyPrefix = "hyperfleet:episode_notify:"

// EpisodeNotifyLock guards alert delivery in multi-instance deployments.
// The hysteresis engine decides episode edges in-process; the lock ensures
// that when two scheduler instances reach the same edge, only one delivers
// the notification.
type EpisodeNotifyLock struct {
	client *redis.Client
}

// NewEpisodeNotifyLock creates a new EpisodeNotifyLock instance
func NewEpisodeNotifyLock(client *redis.Client) *EpisodeNotifyLock {
	return &EpisodeNotifyLock{client: client}
}

// buildKey builds the Redis key for an episode notification lock
// Format: hyperfleet:episode_notify:{kind}:{endpoint_id}
func (l *EpisodeNotifyLock) buildKey(kind alert.Kind, endpointID uint) string {
	return fmt.Sprintf("%s%s:%d", episodeLockKeyPrefix, kind, endpointID)
}

// TryAcquire atomically acquires the notification lock using SetNX.
// Returns true if the caller should deliver the notification, false if
// another instance already did. TOCTOU-safe.
func (l *EpisodeNotifyLock) TryAcquire(ctx context.Context, kind alert.Kind, endpointID uint, ttl time.Duration) (bool, error) {
	key := l.buildKey(kind, endpointID)

	acquired, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire episode notify lock: %w", err)
	}
	return acquired, nil
}

// Release clears the lock when the episode closes, so the next episode of
// the same kind can notify again.
func (l *EpisodeNotifyLock) Release(ctx context.Context, kind alert.Kind, endpointID uint) error {
	key := l.buildKey(kind, endpointID)

	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release episode notify lock: %w", err)
	}
	return nil
}
