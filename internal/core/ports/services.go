package ports

import (
	"context"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishBoundaryEvent(ctx context.Context, ev *domain.BoundaryEvent) error
	PublishSiteDeleted(ctx context.Context, siteID string) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeBoundaryEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.BoundaryEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
