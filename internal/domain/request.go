package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of a ride request.
type RequestStatus string

const (
	RequestOpen        RequestStatus = "open"
	RequestNegotiating RequestStatus = "negotiating"
	RequestAssigned    RequestStatus = "assigned"
	RequestCompleted   RequestStatus = "completed"
	RequestCancelled   RequestStatus = "cancelled"
	RequestFailed      RequestStatus = "failed"
)

// Terminal reports whether the status closes the request.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestCancelled || s == RequestFailed
}

// RideRequest represents one passenger trip request. A request is owned by
// the station that created it; everyone else sees copies.
type RideRequest struct {
	ID              uuid.UUID     `json:"id"`
	PassengerID     string        `json:"passenger_id"`
	Origin          string        `json:"origin"`
	Destination     string        `json:"destination"`
	Status          RequestStatus `json:"status"`
	AssignedVehicle string        `json:"assigned_vehicle,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	ClosedAt        time.Time     `json:"closed_at,omitempty"`
}
