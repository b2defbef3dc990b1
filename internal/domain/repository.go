package domain

import (
	"context"
	"time"
)

// EventRepository defines the interface for simulation persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type EventRepository interface {
	// SaveEvent persists one state-change event
	SaveEvent(ctx context.Context, event Event) error

	// SaveRequestArchive persists a ride request that reached a terminal status
	SaveRequestArchive(ctx context.Context, request RideRequest) error

	// GetRecentEvents retrieves the newest events, newest first
	GetRecentEvents(ctx context.Context, limit int) ([]Event, error)

	// GetArchivedRequests retrieves closed requests within a time range
	GetArchivedRequests(ctx context.Context, from, to time.Time) ([]RideRequest, error)

	// Health checks database connectivity
	Health(ctx context.Context) error
}
