package traffic

import (
	"math/rand"
	"testing"
	"time"

	"github.com/smartcity/transitnet/internal/agent"
	"github.com/smartcity/transitnet/internal/config"
	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
)

func testParams() config.TrafficParams {
	return config.TrafficParams{
		Interval:     100 * time.Millisecond,
		Jitter:       0.5,
		FactorMin:    2, // every picked edge doubles, so every pick changes
		FactorMax:    2,
		EdgeFraction: 0.25,
	}
}

func TestPerturbMutatesAndNotifies(t *testing.T) {
	net := network.SampleNetwork()
	bus := agent.NewBus()
	fleet := agent.NewFleetRegistry()

	box := bus.Register("bus-1", 8)
	fleet.Update(domain.VehicleSnapshot{ID: "bus-1"})

	m := NewManager(net, bus, fleet, testParams(), rand.New(rand.NewSource(3)))
	m.Perturb()

	if net.Version() == 0 {
		t.Fatal("perturbation did not bump the graph version")
	}

	select {
	case msg := <-box:
		tc, ok := msg.(domain.TrafficChange)
		if !ok {
			t.Fatalf("got %T, want TrafficChange", msg)
		}
		if len(tc.EdgeIDs) == 0 {
			t.Error("change notification names no edges")
		}
		if tc.Version != net.Version() {
			t.Errorf("notified version = %d, want %d", tc.Version, net.Version())
		}
		for _, id := range tc.EdgeIDs {
			e, ok := net.Edge(id)
			if !ok {
				t.Fatalf("notified unknown edge %s", id)
			}
			if e.Weight != e.BaseWeight*2 {
				t.Errorf("edge %s weight = %.2f, want %.2f", id, e.Weight, e.BaseWeight*2)
			}
		}
	default:
		t.Fatal("no TrafficChange delivered")
	}
}

func TestPerturbNeverDropsBelowBase(t *testing.T) {
	net := network.SampleNetwork()
	params := testParams()
	params.FactorMin = 1
	params.FactorMax = 4
	params.EdgeFraction = 1

	m := NewManager(net, agent.NewBus(), agent.NewFleetRegistry(), params, rand.New(rand.NewSource(9)))
	for i := 0; i < 10; i++ {
		m.Perturb()
	}

	for _, e := range net.Snapshot().Edges() {
		if e.Weight < e.BaseWeight {
			t.Errorf("edge %s weight %.2f below base %.2f", e.ID, e.Weight, e.BaseWeight)
		}
	}
}

func TestPerturbEmptyNetwork(t *testing.T) {
	m := NewManager(network.New(), agent.NewBus(), agent.NewFleetRegistry(), testParams(), rand.New(rand.NewSource(1)))
	m.Perturb() // must not panic
}

func TestNextIntervalWithinJitterBounds(t *testing.T) {
	params := testParams()
	m := NewManager(network.New(), agent.NewBus(), agent.NewFleetRegistry(), params, rand.New(rand.NewSource(5)))

	lo := time.Duration(float64(params.Interval) * (1 - params.Jitter))
	hi := time.Duration(float64(params.Interval) * (1 + params.Jitter))
	for i := 0; i < 100; i++ {
		d := m.nextInterval()
		if d < lo || d > hi {
			t.Fatalf("interval %v outside [%v, %v]", d, lo, hi)
		}
	}
}
