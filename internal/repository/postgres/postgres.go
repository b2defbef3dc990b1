package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartcity/transitnet/internal/domain"
)

// PostgresRepository implements domain.EventRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveEvent persists a state-change event to PostgreSQL
func (r *PostgresRepository) SaveEvent(ctx context.Context, e domain.Event) error {
	query := `
		INSERT INTO sim_events (
			event_type, request_id, vehicle_id, node, phase, detail, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	// Nullable request id
	var reqID interface{}
	if e.RequestID != nil {
		reqID = e.RequestID.String()
	}

	_, err := r.pool.Exec(ctx, query,
		string(e.Type), reqID, e.VehicleID, e.Node, string(e.Phase), e.Detail, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save event: %w", err)
	}

	return nil
}

// SaveRequestArchive persists a closed ride request to PostgreSQL
func (r *PostgresRepository) SaveRequestArchive(ctx context.Context, req domain.RideRequest) error {
	query := `
		INSERT INTO ride_requests (
			id, passenger_id, origin, destination, status,
			assigned_vehicle, created_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		req.ID.String(), req.PassengerID, req.Origin, req.Destination, string(req.Status),
		req.AssignedVehicle, req.CreatedAt, req.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to archive request: %w", err)
	}

	return nil
}

// GetRecentEvents retrieves the newest events from PostgreSQL
func (r *PostgresRepository) GetRecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	query := `
		SELECT event_type, request_id, vehicle_id, node, phase, detail, timestamp
		FROM sim_events
		ORDER BY timestamp DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query events: %w", err)
	}
	defer rows.Close()

	var results []domain.Event
	for rows.Next() {
		var e domain.Event
		var eventType, phase string
		var reqID *string
		err := rows.Scan(&eventType, &reqID, &e.VehicleID, &e.Node, &phase, &e.Detail, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan event row: %w", err)
		}
		e.Type = domain.EventType(eventType)
		e.Phase = domain.VehiclePhase(phase)
		if reqID != nil {
			if id, parseErr := uuid.Parse(*reqID); parseErr == nil {
				e.RequestID = &id
			}
		}
		results = append(results, e)
	}

	return results, nil
}

// GetArchivedRequests retrieves closed requests within a time range
func (r *PostgresRepository) GetArchivedRequests(ctx context.Context, from, to time.Time) ([]domain.RideRequest, error) {
	query := `
		SELECT id, passenger_id, origin, destination, status,
			   assigned_vehicle, created_at, closed_at
		FROM ride_requests
		WHERE closed_at BETWEEN $1 AND $2
		ORDER BY closed_at DESC
		LIMIT 100
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query requests: %w", err)
	}
	defer rows.Close()

	var results []domain.RideRequest
	for rows.Next() {
		var req domain.RideRequest
		var id, status string
		err := rows.Scan(&id, &req.PassengerID, &req.Origin, &req.Destination, &status,
			&req.AssignedVehicle, &req.CreatedAt, &req.ClosedAt)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan request row: %w", err)
		}
		parsed, parseErr := uuid.Parse(id)
		if parseErr != nil {
			return nil, fmt.Errorf("postgres: invalid request id %q: %w", id, parseErr)
		}
		req.ID = parsed
		req.Status = domain.RequestStatus(status)
		results = append(results, req)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
