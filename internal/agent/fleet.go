package agent

import (
	"sort"
	"sync"

	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
)

// EventSink receives state-change events from agents. The service layer's
// event stream satisfies it.
type EventSink interface {
	Publish(event domain.Event)
}

// FleetRegistry holds the latest snapshot published by each vehicle. Only
// the owning vehicle writes its entry; everyone else reads copies.
type FleetRegistry struct {
	mu    sync.RWMutex
	snaps map[string]domain.VehicleSnapshot
}

// NewFleetRegistry creates an empty registry.
func NewFleetRegistry() *FleetRegistry {
	return &FleetRegistry{snaps: make(map[string]domain.VehicleSnapshot)}
}

// Update stores the vehicle's latest snapshot.
func (f *FleetRegistry) Update(s domain.VehicleSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[s.ID] = s
}

// Get returns the snapshot for one vehicle.
func (f *FleetRegistry) Get(id string) (domain.VehicleSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.snaps[id]
	return s, ok
}

// Snapshot returns all vehicle snapshots sorted by id.
func (f *FleetRegistry) Snapshot() []domain.VehicleSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.VehicleSnapshot, 0, len(f.snaps))
	for _, s := range f.snaps {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns all registered vehicle ids sorted.
func (f *FleetRegistry) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.snaps))
	for id := range f.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EligibleForTrip pre-filters auction invitees: idle vehicles whose
// capability set can reach the trip origin from their position and the
// destination from the origin. Avoids wasted negotiation rounds.
func (f *FleetRegistry) EligibleForTrip(topo *network.Topology, origin, destination string, classes map[domain.VehicleClass]network.CapabilitySet) []string {
	var out []string
	for _, s := range f.Snapshot() {
		if s.Phase != domain.PhaseIdle {
			continue
		}
		caps, ok := classes[s.Class]
		if !ok {
			continue
		}
		if !topo.Reachable(s.Node, origin, caps) || !topo.Reachable(origin, destination, caps) {
			continue
		}
		out = append(out, s.ID)
	}
	return out
}
