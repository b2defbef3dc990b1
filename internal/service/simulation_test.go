package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/transitnet/internal/config"
	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
	"github.com/smartcity/transitnet/internal/repository/postgres"
)

func e2eConfig(fleet []config.VehicleSpec) *config.Config {
	return &config.Config{
		Bid:               config.BidWeights{Fuel: 1.0, ETA: 1.0, Traffic: 0.5},
		AuctionDeadline:   150 * time.Millisecond,
		AcceptGrace:       150 * time.Millisecond,
		PassengerPatience: 10 * time.Second,
		BreakdownRate:     0,
		RepairDuration:    10 * time.Millisecond,
		RefuelDuration:    10 * time.Millisecond,
		TimeScale:         time.Millisecond,
		StationRetryLimit: 5,
		RetryBackoff:      50 * time.Millisecond,
		Fuel:              config.FuelParams{Capacity: 100, Consumption: 0.2, Reserve: 5},
		Traffic:           config.TrafficParams{Interval: time.Hour, Jitter: 0.1, FactorMin: 1, FactorMax: 1, EdgeFraction: 0.1, RerouteTolerance: 0.25},
		Classes:           config.DefaultClasses(),
		Fleet:             fleet,
	}
}

func lineNetwork(t *testing.T) *network.RoadNetwork {
	t.Helper()
	n := network.New()
	for _, id := range []string{"A", "B", "C"} {
		n.AddNode(id, 0, 0)
	}
	for _, e := range []struct {
		from, to string
	}{
		{"A", "B"}, {"B", "A"}, {"B", "C"}, {"C", "B"},
	} {
		if err := n.AddEdge(e.from+"-"+e.to, e.from, e.to, network.CapRoad, 2); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	return n
}

// collectUntil drains the event channel until want completed requests were
// seen or the deadline hits, returning everything observed.
func collectUntil(t *testing.T, events <-chan domain.Event, want int, timeout time.Duration) []domain.Event {
	t.Helper()
	var seen []domain.Event
	completed := 0
	deadline := time.After(timeout)
	for completed < want {
		select {
		case e := <-events:
			seen = append(seen, e)
			if e.Type == domain.EventRequestCompleted {
				completed++
			}
			if e.Type == domain.EventRequestFailed || e.Type == domain.EventRequestCancelled {
				t.Fatalf("request closed as %s: %+v", e.Type, e)
			}
		case <-deadline:
			t.Fatalf("saw %d completed requests before timeout, want %d (events: %d)", completed, want, len(seen))
		}
	}
	return seen
}

func TestSimulationCompletesTrip(t *testing.T) {
	cfg := e2eConfig([]config.VehicleSpec{{ID: "bus-1", Class: domain.ClassBus, StartNode: "A"}})
	events := NewEventStream()
	sub := events.Subscribe(256)
	repo := postgres.NewMockRepository()

	sim := NewSimulation(cfg, lineNetwork(t), repo, events)
	ctx := context.Background()
	sim.Start(ctx)
	defer sim.Stop()

	p := sim.SpawnPassenger(ctx, "A", "C")
	seen := collectUntil(t, sub, 1, 10*time.Second)

	var reqID uuid.UUID
	var sawCreated, sawAssigned bool
	for _, e := range seen {
		switch e.Type {
		case domain.EventRequestCreated:
			sawCreated = true
			if e.RequestID != nil {
				reqID = *e.RequestID
			}
		case domain.EventRequestAssigned:
			sawAssigned = true
			if !sawCreated {
				t.Error("assigned before created")
			}
			if e.VehicleID != "bus-1" {
				t.Errorf("assigned vehicle = %s, want bus-1", e.VehicleID)
			}
		case domain.EventRequestCompleted:
			if !sawAssigned {
				t.Error("completed before assigned")
			}
			if e.RequestID == nil || *e.RequestID != reqID {
				t.Error("completion for a different request")
			}
		}
	}

	// The vehicle ends idle at the dropoff with fuel burned.
	waitFor(t, 2*time.Second, func() bool {
		snap, ok := sim.Fleet().Get("bus-1")
		return ok && snap.Node == "C" && snap.Phase == domain.PhaseIdle
	}, "vehicle idle at C")

	waitFor(t, 2*time.Second, func() bool {
		return p.Status() == domain.PassengerAssigned
	}, "passenger assigned")

	// The completed request reached the archive.
	waitFor(t, 2*time.Second, func() bool {
		reqs, err := repo.GetArchivedRequests(ctx, time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
		return err == nil && len(reqs) == 1 && reqs[0].Status == domain.RequestCompleted
	}, "request archived as completed")
}

func TestSimulationServesConcurrentDemand(t *testing.T) {
	cfg := e2eConfig([]config.VehicleSpec{
		{ID: "bus-1", Class: domain.ClassBus, StartNode: "A"},
		{ID: "bus-2", Class: domain.ClassBus, StartNode: "A"},
	})
	events := NewEventStream()
	sub := events.Subscribe(512)

	sim := NewSimulation(cfg, lineNetwork(t), postgres.NewMockRepository(), events)
	ctx := context.Background()
	sim.Start(ctx)
	defer sim.Stop()

	for i := 0; i < 4; i++ {
		sim.SpawnPassenger(ctx, "A", "C")
	}
	seen := collectUntil(t, sub, 4, 30*time.Second)

	// Every request is assigned exactly once and every assignment
	// precedes its completion.
	assignments := make(map[uuid.UUID]int)
	for _, e := range seen {
		switch e.Type {
		case domain.EventRequestAssigned:
			if e.RequestID == nil {
				t.Fatal("assignment without a request id")
			}
			assignments[*e.RequestID]++
		case domain.EventRequestCompleted:
			if e.RequestID == nil {
				t.Fatal("completion without a request id")
			}
			if assignments[*e.RequestID] == 0 {
				t.Errorf("request %s completed without assignment", e.RequestID)
			}
		}
	}
	if len(assignments) != 4 {
		t.Errorf("assigned requests = %d, want 4", len(assignments))
	}
	for id, n := range assignments {
		if n != 1 {
			t.Errorf("request %s assigned %d times, want exactly once", id, n)
		}
	}
}

func TestSimulationSkipsVehicleOnUnknownNode(t *testing.T) {
	cfg := e2eConfig([]config.VehicleSpec{
		{ID: "bus-1", Class: domain.ClassBus, StartNode: "A"},
		{ID: "bus-ghost", Class: domain.ClassBus, StartNode: "Nowhere"},
	})
	sim := NewSimulation(cfg, lineNetwork(t), postgres.NewMockRepository(), NewEventStream())
	if len(sim.vehicles) != 1 {
		t.Errorf("vehicles = %d, want 1 (unknown start node skipped)", len(sim.vehicles))
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
