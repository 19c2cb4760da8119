package service

import (
	"context"

	"campuseval/internal/domain/entity"
)

// EventPublisher ships audit events to a message bus.
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, event *entity.AuthEvent) error

	// Close releases any resources held by the publisher.
	Close() error
}

// AuthMetrics counts operation outcomes.
type AuthMetrics interface {
	Observe(operation, outcome string)
}
