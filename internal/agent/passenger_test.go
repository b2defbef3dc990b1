package agent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/transitnet/internal/domain"
)

func TestPassengerCancelsOnPatienceExpiry(t *testing.T) {
	bus := NewBus()
	station := bus.Register(StationAddress("Central"), 8)

	p := NewPassenger("passenger:p1", "Central", "Airport", 30*time.Millisecond, bus)
	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	msg := <-station
	req, ok := msg.(domain.TravelRequest)
	if !ok {
		t.Fatalf("got %T, want TravelRequest", msg)
	}
	if req.Destination != "Airport" {
		t.Errorf("destination = %s, want Airport", req.Destination)
	}

	select {
	case msg := <-station:
		cancel, ok := msg.(domain.Cancel)
		if !ok {
			t.Fatalf("got %T, want Cancel", msg)
		}
		if cancel.SenderID != "passenger:p1" {
			t.Errorf("cancel sender = %s, want passenger:p1", cancel.SenderID)
		}
		if cancel.RequestID != uuid.Nil {
			t.Errorf("cancel request id = %s, want nil (passengers never learn it)", cancel.RequestID)
		}
	case <-time.After(time.Second):
		t.Fatal("no Cancel after patience expiry")
	}

	<-done
	if got := p.Status(); got != domain.PassengerGaveUp {
		t.Errorf("status = %s, want gave_up", got)
	}

	// Exactly one cancellation, ever.
	select {
	case msg := <-station:
		t.Fatalf("unexpected extra message %T", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPassengerAssignedBeforeExpiry(t *testing.T) {
	bus := NewBus()
	station := bus.Register(StationAddress("Central"), 8)

	p := NewPassenger("passenger:p1", "Central", "Airport", 500*time.Millisecond, bus)
	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	<-station // the travel request
	bus.Send("passenger:p1", domain.Accept{SenderID: StationAddress("Central")})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("passenger did not return after Accept")
	}
	if got := p.Status(); got != domain.PassengerAssigned {
		t.Errorf("status = %s, want assigned", got)
	}

	// The countdown was cancelled: no Cancel follows.
	select {
	case msg := <-station:
		t.Fatalf("unexpected message %T after assignment", msg)
	case <-time.After(600 * time.Millisecond):
	}
}

func TestPassengerRejectedGivesUp(t *testing.T) {
	bus := NewBus()
	station := bus.Register(StationAddress("Central"), 8)

	p := NewPassenger("passenger:p1", "Central", "Airport", time.Second, bus)
	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	<-station
	bus.Send("passenger:p1", domain.Reject{SenderID: StationAddress("Central"), Reason: "no_proposals"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("passenger did not return after Reject")
	}
	if got := p.Status(); got != domain.PassengerGaveUp {
		t.Errorf("status = %s, want gave_up", got)
	}
}
