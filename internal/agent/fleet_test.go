package agent

import (
	"reflect"
	"testing"

	"github.com/smartcity/transitnet/internal/config"
	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
)

func TestEligibleForTrip(t *testing.T) {
	fleet := NewFleetRegistry()
	fleet.Update(domain.VehicleSnapshot{ID: "bus-1", Class: domain.ClassBus, Node: "South", Phase: domain.PhaseIdle})
	fleet.Update(domain.VehicleSnapshot{ID: "bus-2", Class: domain.ClassBus, Node: "North", Phase: domain.PhaseMoving})
	fleet.Update(domain.VehicleSnapshot{ID: "tram-1", Class: domain.ClassTram, Node: "East", Phase: domain.PhaseIdle})

	topo := network.SampleNetwork().Snapshot()
	classes := config.DefaultClasses()

	// Airport hangs off highways: trams are out, busy buses are out.
	got := fleet.EligibleForTrip(topo, "Central", "Airport", classes)
	if want := []string{"bus-1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("eligible = %v, want %v", got, want)
	}

	// Stadium is tram-only territory.
	got = fleet.EligibleForTrip(topo, "Central", "Stadium", classes)
	if want := []string{"tram-1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("eligible = %v, want %v", got, want)
	}
}

func TestEligibleForTripUnknownClass(t *testing.T) {
	fleet := NewFleetRegistry()
	fleet.Update(domain.VehicleSnapshot{ID: "x-1", Class: "zeppelin", Node: "Central", Phase: domain.PhaseIdle})

	topo := network.SampleNetwork().Snapshot()
	if got := fleet.EligibleForTrip(topo, "Central", "North", config.DefaultClasses()); len(got) != 0 {
		t.Errorf("eligible = %v, want none", got)
	}
}

func TestFleetSnapshotSorted(t *testing.T) {
	fleet := NewFleetRegistry()
	for _, id := range []string{"tram-1", "bus-2", "bus-1"} {
		fleet.Update(domain.VehicleSnapshot{ID: id})
	}
	got := fleet.IDs()
	want := []string{"bus-1", "bus-2", "tram-1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}
