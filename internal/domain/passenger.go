package domain

import (
	"time"
)

// PassengerStatus is the waiting state of a passenger.
type PassengerStatus string

const (
	PassengerWaiting  PassengerStatus = "waiting"
	PassengerAssigned PassengerStatus = "assigned"
	PassengerGaveUp   PassengerStatus = "gave_up"
)

// PassengerSnapshot is a read-only view of a passenger agent's state. The
// request id is deliberately absent: passengers never learn it.
type PassengerSnapshot struct {
	ID        string          `json:"id"`
	ArrivedAt time.Time       `json:"arrived_at"`
	Patience  time.Duration   `json:"patience"`
	Status    PassengerStatus `json:"status"`
}
