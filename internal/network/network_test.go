package network

import (
	"errors"
	"testing"
)

func buildTestNetwork(t *testing.T) *RoadNetwork {
	t.Helper()
	n := New()
	n.AddNode("A", 0, 0)
	n.AddNode("B", 1, 0)
	n.AddNode("C", 2, 0)
	edges := []struct {
		id, from, to string
		cap          Capability
		weight       float64
	}{
		{"A-B", "A", "B", CapRoad, 4},
		{"B-C", "B", "C", CapTramTrack, 3},
		{"A-C", "A", "C", CapHighway, 10},
	}
	for _, e := range edges {
		if err := n.AddEdge(e.id, e.from, e.to, e.cap, e.weight); err != nil {
			t.Fatalf("AddEdge(%s): %v", e.id, err)
		}
	}
	return n
}

func TestAddEdgeValidation(t *testing.T) {
	n := buildTestNetwork(t)

	tests := []struct {
		name         string
		id, from, to string
		cap          Capability
		weight       float64
		wantErr      error
	}{
		{"unknown from node", "X-B", "X", "B", CapRoad, 1, ErrUnknownNode},
		{"unknown to node", "A-X", "A", "X", CapRoad, 1, ErrUnknownNode},
		{"duplicate id", "A-B", "B", "A", CapRoad, 1, ErrDuplicateEdge},
		{"duplicate pair and capability", "A-B-2", "A", "B", CapRoad, 2, ErrDuplicateEdge},
		{"zero weight", "B-A", "B", "A", CapRoad, 0, ErrInvalidWeight},
		{"negative weight", "C-A", "C", "A", CapRoad, -3, ErrInvalidWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := n.AddEdge(tt.id, tt.from, tt.to, tt.cap, tt.weight)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddEdge(%s) = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}

	// Same node pair with a different capability is a parallel edge, allowed.
	if err := n.AddEdge("A-B-tram", "A", "B", CapTramTrack, 5); err != nil {
		t.Errorf("parallel edge with different capability: %v", err)
	}
}

func TestSetEdgeWeight(t *testing.T) {
	n := buildTestNetwork(t)

	if err := n.SetEdgeWeight("A-B", 0); !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("SetEdgeWeight(0) = %v, want ErrInvalidWeight", err)
	}
	if err := n.SetEdgeWeight("A-B", -1); !errors.Is(err, ErrInvalidWeight) {
		t.Errorf("SetEdgeWeight(-1) = %v, want ErrInvalidWeight", err)
	}
	if err := n.SetEdgeWeight("nope", 5); !errors.Is(err, ErrUnknownEdge) {
		t.Errorf("SetEdgeWeight(unknown) = %v, want ErrUnknownEdge", err)
	}
	if got := n.Version(); got != 0 {
		t.Fatalf("version after rejected mutations = %d, want 0", got)
	}

	if err := n.SetEdgeWeight("A-B", 8); err != nil {
		t.Fatalf("SetEdgeWeight: %v", err)
	}
	if got := n.Version(); got != 1 {
		t.Errorf("version after change = %d, want 1", got)
	}

	// Identical write is idempotent: no version bump.
	if err := n.SetEdgeWeight("A-B", 8); err != nil {
		t.Fatalf("SetEdgeWeight: %v", err)
	}
	if got := n.Version(); got != 1 {
		t.Errorf("version after idempotent write = %d, want 1", got)
	}

	// Below the base weight the value clamps up to the floor.
	if err := n.SetEdgeWeight("A-B", 1); err != nil {
		t.Fatalf("SetEdgeWeight: %v", err)
	}
	e, ok := n.Edge("A-B")
	if !ok {
		t.Fatal("edge A-B missing")
	}
	if e.Weight != e.BaseWeight {
		t.Errorf("clamped weight = %.2f, want base %.2f", e.Weight, e.BaseWeight)
	}
	if got := n.Version(); got != 2 {
		t.Errorf("version after clamp = %d, want 2", got)
	}
}

func TestEdgesFromCapabilityFilter(t *testing.T) {
	n := buildTestNetwork(t)
	topo := n.Snapshot()

	busCaps := NewCapabilitySet(CapRoad, CapHighway)
	tramCaps := NewCapabilitySet(CapRoad, CapTramTrack)

	for _, e := range topo.EdgesFrom("B", busCaps) {
		if e.Capability == CapTramTrack {
			t.Errorf("bus capability set returned tram edge %s", e.ID)
		}
	}
	for _, e := range topo.EdgesFrom("A", tramCaps) {
		if e.Capability == CapHighway {
			t.Errorf("tram capability set returned highway edge %s", e.ID)
		}
	}
}

func TestReachable(t *testing.T) {
	n := buildTestNetwork(t)
	topo := n.Snapshot()

	busCaps := NewCapabilitySet(CapRoad, CapHighway)
	tramCaps := NewCapabilitySet(CapRoad, CapTramTrack)

	tests := []struct {
		name     string
		from, to string
		caps     CapabilitySet
		want     bool
	}{
		{"bus direct highway", "A", "C", busCaps, true},
		{"tram via road then track", "A", "C", tramCaps, true},
		{"bus cannot use tram track", "B", "C", busCaps, false},
		{"same node", "B", "B", busCaps, true},
		{"no reverse edges", "C", "A", busCaps, false},
		{"unknown node", "A", "X", busCaps, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := topo.Reachable(tt.from, tt.to, tt.caps); got != tt.want {
				t.Errorf("Reachable(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestSnapshotIsolation(t *testing.T) {
	n := buildTestNetwork(t)
	topo := n.Snapshot()

	if err := n.SetEdgeWeight("A-B", 20); err != nil {
		t.Fatalf("SetEdgeWeight: %v", err)
	}

	e, _ := topo.Edge("A-B")
	if e.Weight != 4 {
		t.Errorf("snapshot edge weight = %.2f, want original 4", e.Weight)
	}
	if topo.Version != 0 {
		t.Errorf("snapshot version = %d, want 0", topo.Version)
	}
	if n.Version() != 1 {
		t.Errorf("live version = %d, want 1", n.Version())
	}
}

func TestSampleNetwork(t *testing.T) {
	n := SampleNetwork()
	topo := n.Snapshot()

	if got := len(topo.Nodes()); got != 9 {
		t.Fatalf("sample network has %d nodes, want 9", got)
	}

	busCaps := NewCapabilitySet(CapRoad, CapHighway)
	tramCaps := NewCapabilitySet(CapRoad, CapTramTrack)

	if !topo.Reachable("Central", "Airport", busCaps) {
		t.Error("bus should reach Airport from Central")
	}
	if !topo.Reachable("Central", "Stadium", tramCaps) {
		t.Error("tram should reach Stadium from Central")
	}
}
