package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// fleetStatusKey holds the cached fleet-wide live counts.
	fleetStatusKey = "hyperfleet:fleet_status"

	// fleetStatusTTL bounds staleness if an invalidation is ever missed.
	fleetStatusTTL = 5 * time.Minute
)

// FleetCounts is the fleet-wide aggregate of endpoint health states.
type FleetCounts struct {
	Total    int       `json:"total"`
	Online   int       `json:"online"`
	Degraded int       `json:"degraded"`
	Offline  int       `json:"offline"`
	Unknown  int       `json:"unknown"`
	Checking int       `json:"checking"`
	At       time.Time `json:"at"`
}

// FleetStatusCache caches the fleet aggregate so dashboard reads do not
// recompute it per request. Any status-affecting change invalidates it.
type FleetStatusCache struct {
	client *redis.Client
}

// NewFleetStatusCache creates a new FleetStatusCache instance
func NewFleetStatusCache(client *redis.Client) *FleetStatusCache {
	return &FleetStatusCache{client: client}
}

// Get returns the cached counts, or (nil, nil) on cache miss.
func (c *FleetStatusCache) Get(ctx context.Context) (*FleetCounts, error) {
	data, err := c.client.Get(ctx, fleetStatusKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fleet status cache: %w", err)
	}

	var counts FleetCounts
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fleet status cache: %w", err)
	}
	return &counts, nil
}

// Set stores freshly computed counts.
func (c *FleetStatusCache) Set(ctx context.Context, counts *FleetCounts) error {
	data, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to marshal fleet status cache: %w", err)
	}

	if err := c.client.Set(ctx, fleetStatusKey, data, fleetStatusTTL).Err(); err != nil {
		return fmt.Errorf("failed to set fleet status cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached aggregate so the next read recomputes it.
func (c *FleetStatusCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, fleetStatusKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate fleet status cache: %w", err)
	}
	return nil
}
