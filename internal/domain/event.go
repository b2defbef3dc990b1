package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a state-change event emitted by the core.
type EventType string

const (
	EventRequestCreated      EventType = "request_created"
	EventRequestAssigned     EventType = "request_assigned"
	EventRequestCompleted    EventType = "request_completed"
	EventRequestCancelled    EventType = "request_cancelled"
	EventRequestFailed       EventType = "request_failed"
	EventVehicleStateChanged EventType = "vehicle_state_changed"
)

// Event is one entry on the read-only observable stream consumed by the
// dashboard, the stats collector and the repository.
type Event struct {
	Type      EventType    `json:"type"`
	RequestID *uuid.UUID   `json:"request_id,omitempty"`
	VehicleID string       `json:"vehicle_id,omitempty"`
	Node      string       `json:"node,omitempty"`
	Phase     VehiclePhase `json:"phase,omitempty"`
	Detail    string       `json:"detail,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
