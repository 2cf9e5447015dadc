package alert

import "context"

// EpisodeRepository persists alert episodes.
type EpisodeRepository interface {
	Create(ctx context.Context, episode *Episode) error
	Update(ctx context.Context, episode *Episode) error
	ListActive(ctx context.Context) ([]*Episode, error)
	ListByEndpoint(ctx context.Context, endpointID uint, limit int) ([]*Episode, error)
}
