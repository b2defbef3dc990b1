package domain

import (
	"time"

	"github.com/google/uuid"
)

// VehicleClass selects which edge capabilities a vehicle may traverse.
type VehicleClass string

const (
	ClassBus  VehicleClass = "bus"
	ClassTram VehicleClass = "tram"
)

// VehiclePhase is the state-machine phase of a vehicle agent.
type VehiclePhase string

const (
	PhaseIdle        VehiclePhase = "idle"
	PhaseNegotiating VehiclePhase = "negotiating"
	PhaseMoving      VehiclePhase = "moving"
	PhaseMaintenance VehiclePhase = "maintenance"
	PhaseRefueling   VehiclePhase = "refueling"
)

// VehicleSnapshot is an immutable view of a vehicle's state. Only the
// vehicle agent itself mutates the underlying state; other components
// observe snapshots published to the fleet registry.
type VehicleSnapshot struct {
	ID        string       `json:"id"`
	Class     VehicleClass `json:"class"`
	Node      string       `json:"node"`
	Fuel      float64      `json:"fuel"`
	Phase     VehiclePhase `json:"phase"`
	Route     []string     `json:"route,omitempty"`
	RequestID *uuid.UUID   `json:"request_id,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}
