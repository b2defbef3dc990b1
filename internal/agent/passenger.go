package agent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/transitnet/internal/domain"
)

// Passenger is the agent for one waiting passenger. It files a travel
// request with its origin station and tracks elapsed wait time against its
// patience budget: if the request is not assigned in time, the passenger
// cancels it exactly once and leaves.
type Passenger struct {
	id          string
	origin      string
	destination string
	patience    time.Duration
	arrivedAt   time.Time

	bus   *Bus
	inbox <-chan domain.Message

	mu     sync.Mutex
	status domain.PassengerStatus
}

// NewPassenger creates a passenger agent and registers its mailbox.
func NewPassenger(id, origin, destination string, patience time.Duration, bus *Bus) *Passenger {
	p := &Passenger{
		id:          id,
		origin:      origin,
		destination: destination,
		patience:    patience,
		arrivedAt:   time.Now(),
		bus:         bus,
		status:      domain.PassengerWaiting,
	}
	p.inbox = bus.Register(id, 8)
	return p
}

// Status returns the passenger's current state.
func (p *Passenger) Status() domain.PassengerStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Snapshot returns a read-only view of the passenger.
func (p *Passenger) Snapshot() domain.PassengerSnapshot {
	return domain.PassengerSnapshot{
		ID:        p.id,
		ArrivedAt: p.arrivedAt,
		Patience:  p.patience,
		Status:    p.Status(),
	}
}

func (p *Passenger) setStatus(s domain.PassengerStatus) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// Run files the travel request and waits until assignment, rejection or
// patience expiry. The wait is time-bounded; the agent never blocks on a
// message that may not arrive.
func (p *Passenger) Run(ctx context.Context) {
	defer p.bus.Unregister(p.id)

	p.bus.Send(StationAddress(p.origin), domain.TravelRequest{
		SenderID:    p.id,
		Origin:      p.origin,
		Destination: p.destination,
	})

	timer := time.NewTimer(p.patience)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.inbox:
			switch msg.(type) {
			case domain.Accept:
				// Assigned before expiry: the countdown is cancelled and
				// has no further effect.
				p.setStatus(domain.PassengerAssigned)
				return
			case domain.Reject:
				p.setStatus(domain.PassengerGaveUp)
				return
			}
		case <-timer.C:
			// Patience ran out first. The station resolves the request id
			// from the passenger identity, as the passenger never learns it.
			p.setStatus(domain.PassengerGaveUp)
			p.bus.Send(StationAddress(p.origin), domain.Cancel{SenderID: p.id, RequestID: uuid.Nil})
			return
		}
	}
}
