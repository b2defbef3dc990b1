package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/smartcity/transitnet/internal/domain"
)

const mockCapacity = 1000

// MockRepository implements domain.EventRepository in memory for demo mode
// and tests.
type MockRepository struct {
	mu       sync.RWMutex
	events   []domain.Event
	requests []domain.RideRequest
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveEvent keeps the newest events in a bounded in-memory buffer
func (r *MockRepository) SaveEvent(ctx context.Context, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if len(r.events) > mockCapacity {
		r.events = r.events[len(r.events)-mockCapacity:]
	}
	return nil
}

// SaveRequestArchive keeps closed requests in a bounded in-memory buffer
func (r *MockRepository) SaveRequestArchive(ctx context.Context, req domain.RideRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if len(r.requests) > mockCapacity {
		r.requests = r.requests[len(r.requests)-mockCapacity:]
	}
	return nil
}

// GetRecentEvents returns the newest stored events, newest first
func (r *MockRepository) GetRecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]domain.Event, 0, limit)
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

// GetArchivedRequests returns stored requests closed within the range
func (r *MockRepository) GetArchivedRequests(ctx context.Context, from, to time.Time) ([]domain.RideRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.RideRequest
	for i := len(r.requests) - 1; i >= 0; i-- {
		req := r.requests[i]
		if req.ClosedAt.Before(from) || req.ClosedAt.After(to) {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
