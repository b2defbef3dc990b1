package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is the closed set of protocol messages exchanged between agents.
// Handlers match exhaustively with a type switch; the unexported marker
// keeps the variant set sealed to this package.
type Message interface {
	Sender() string
	message()
}

// TravelRequest is sent by a passenger to its origin station.
type TravelRequest struct {
	SenderID    string
	Origin      string
	Destination string
}

// CFP is a call-for-proposal broadcast by an auction to eligible vehicles.
type CFP struct {
	SenderID    string
	AuctionID   uuid.UUID
	RequestID   uuid.UUID
	StationID   string
	Origin      string
	Destination string
	ReplyTo     string
	Deadline    time.Time
}

// Propose carries a vehicle's bid back to the auction.
type Propose struct {
	SenderID    string
	AuctionID   uuid.UUID
	RequestID   uuid.UUID
	Cost        float64
	SubmittedAt time.Time
}

// Refuse is an explicit non-bid, or a rejection of a stale Accept.
type Refuse struct {
	SenderID  string
	AuctionID uuid.UUID
	RequestID uuid.UUID
	Reason    string
}

// Accept notifies the winning bidder (or, from a station, the passenger).
type Accept struct {
	SenderID  string
	AuctionID uuid.UUID
	RequestID uuid.UUID
	StationID string
}

// Reject notifies a losing bidder (or, from a station, the passenger).
type Reject struct {
	SenderID  string
	AuctionID uuid.UUID
	RequestID uuid.UUID
	Reason    string
}

// TrafficChange announces mutated edge weights to vehicles.
type TrafficChange struct {
	SenderID string
	EdgeIDs  []string
	Version  uint64
}

// Cancel withdraws a ride request.
type Cancel struct {
	SenderID  string
	RequestID uuid.UUID
}

// Breakdown reports that a vehicle aborted its assigned trip.
type Breakdown struct {
	SenderID  string
	RequestID uuid.UUID
	Node      string
	Issue     string
}

// Arrival reports trip completion to the owning station.
type Arrival struct {
	SenderID  string
	RequestID uuid.UUID
	Node      string
}

func (m TravelRequest) Sender() string { return m.SenderID }
func (m CFP) Sender() string           { return m.SenderID }
func (m Propose) Sender() string       { return m.SenderID }
func (m Refuse) Sender() string        { return m.SenderID }
func (m Accept) Sender() string        { return m.SenderID }
func (m Reject) Sender() string        { return m.SenderID }
func (m TrafficChange) Sender() string { return m.SenderID }
func (m Cancel) Sender() string        { return m.SenderID }
func (m Breakdown) Sender() string     { return m.SenderID }
func (m Arrival) Sender() string       { return m.SenderID }

func (TravelRequest) message() {}
func (CFP) message()           {}
func (Propose) message()       {}
func (Refuse) message()        {}
func (Accept) message()        {}
func (Reject) message()        {}
func (TrafficChange) message() {}
func (Cancel) message()        {}
func (Breakdown) message()     {}
func (Arrival) message()       {}
