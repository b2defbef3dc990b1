package traffic

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/smartcity/transitnet/internal/agent"
	"github.com/smartcity/transitnet/internal/config"
	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
	"github.com/smartcity/transitnet/pkg/utils"
)

// Address is the traffic manager's bus identity on outbound notifications.
const Address = "traffic-manager"

// Manager periodically perturbs road-network edge weights and notifies
// vehicles of the affected edges. It is purely a graph-weight mutator:
// it knows nothing about requests or negotiations.
type Manager struct {
	net   *network.RoadNetwork
	bus   *agent.Bus
	fleet *agent.FleetRegistry
	cfg   config.TrafficParams
	rng   *rand.Rand
}

// NewManager creates a traffic manager. A nil rng gets a time-seeded one.
func NewManager(net *network.RoadNetwork, bus *agent.Bus, fleet *agent.FleetRegistry, cfg config.TrafficParams, rng *rand.Rand) *Manager {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{net: net, bus: bus, fleet: fleet, cfg: cfg, rng: rng}
}

// Run perturbs the network on a jittered interval until the context ends.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.nextInterval()):
			m.Perturb()
		}
	}
}

// nextInterval jitters the base interval by ±Jitter.
func (m *Manager) nextInterval() time.Duration {
	spread := m.cfg.Jitter * (2*m.rng.Float64() - 1)
	return time.Duration(float64(m.cfg.Interval) * (1 + spread))
}

// Perturb multiplies the base weight of a random subset of edges by a
// random factor within the configured range and broadcasts the change.
// Factors near the minimum clear jams back toward the base weight.
func (m *Manager) Perturb() {
	ids := m.net.EdgeIDs()
	if len(ids) == 0 {
		return
	}
	count := int(float64(len(ids)) * m.cfg.EdgeFraction)
	if count < 1 {
		count = 1
	}

	m.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	changed := make([]string, 0, count)
	for _, id := range ids[:count] {
		e, ok := m.net.Edge(id)
		if !ok {
			continue
		}
		factor := utils.Lerp(m.cfg.FactorMin, m.cfg.FactorMax, m.rng.Float64())
		newWeight := utils.RoundTo(e.BaseWeight*factor, 2)
		if err := m.net.SetEdgeWeight(id, newWeight); err != nil {
			// Rejected mutations are logged and ignored.
			if !errors.Is(err, network.ErrInvalidWeight) {
				log.Printf("[traffic] %v", err)
			}
			continue
		}
		changed = append(changed, id)
	}
	if len(changed) == 0 {
		return
	}

	version := m.net.Version()
	log.Printf("[traffic] perturbed %d edges (graph v%d)", len(changed), version)
	for _, vid := range m.fleet.IDs() {
		m.bus.Send(vid, domain.TrafficChange{SenderID: Address, EdgeIDs: changed, Version: version})
	}
}
