package service

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartcity/transitnet/internal/agent"
	"github.com/smartcity/transitnet/internal/config"
	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
	"github.com/smartcity/transitnet/internal/routing"
	"github.com/smartcity/transitnet/internal/traffic"
)

// Simulation wires the agents together: one station per node, the
// configured vehicle fleet, the traffic manager and the demand generator.
type Simulation struct {
	cfg    *config.Config
	net    *network.RoadNetwork
	router *routing.Router
	bus    *agent.Bus
	fleet  *agent.FleetRegistry
	events *EventStream
	repo   domain.EventRepository

	stations []*agent.Station
	vehicles []*agent.Vehicle
	traffic  *traffic.Manager

	wg     sync.WaitGroup
	cancel context.CancelFunc

	rng          *rand.Rand
	passengerSeq int64
	activePax    int64
}

// NewSimulation builds all agents over the given network. Nothing runs
// until Start.
func NewSimulation(cfg *config.Config, net *network.RoadNetwork, repo domain.EventRepository, events *EventStream) *Simulation {
	s := &Simulation{
		cfg:    cfg,
		net:    net,
		router: routing.New(net),
		bus:    agent.NewBus(),
		fleet:  agent.NewFleetRegistry(),
		events: events,
		repo:   repo,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	topo := net.Snapshot()
	for _, node := range topo.Nodes() {
		s.stations = append(s.stations, agent.NewStation(node.ID, cfg, net, s.bus, s.fleet, events, repo))
	}
	for _, spec := range cfg.Fleet {
		if !topo.HasNode(spec.StartNode) {
			log.Printf("[sim] skipping vehicle %s: unknown start node %q", spec.ID, spec.StartNode)
			continue
		}
		s.vehicles = append(s.vehicles, agent.NewVehicle(spec, cfg, s.router, s.bus, s.fleet, events, nil))
	}
	s.traffic = traffic.NewManager(net, s.bus, s.fleet, cfg.Traffic, nil)
	return s
}

// Bus exposes the message transport, mainly for tests and tooling.
func (s *Simulation) Bus() *agent.Bus { return s.bus }

// Fleet exposes the fleet registry.
func (s *Simulation) Fleet() *agent.FleetRegistry { return s.fleet }

// Router exposes the shared router.
func (s *Simulation) Router() *routing.Router { return s.router }

// Start launches every agent. Stop (or the parent context) shuts them down.
func (s *Simulation) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	for _, st := range s.stations {
		st := st
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			st.Run(ctx)
		}()
	}
	for _, v := range s.vehicles {
		v := v
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			v.Run(ctx)
		}()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.traffic.Run(ctx)
	}()

	log.Printf("[sim] started: %d stations, %d vehicles", len(s.stations), len(s.vehicles))
}

// Stop shuts down every agent and waits for them to exit.
func (s *Simulation) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// SpawnPassenger creates and runs a passenger agent for the trip.
func (s *Simulation) SpawnPassenger(ctx context.Context, origin, destination string) *agent.Passenger {
	id := fmt.Sprintf("passenger:p%d", atomic.AddInt64(&s.passengerSeq, 1))
	p := agent.NewPassenger(id, origin, destination, s.cfg.PassengerPatience, s.bus)
	atomic.AddInt64(&s.activePax, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer atomic.AddInt64(&s.activePax, -1)
		p.Run(ctx)
	}()
	return p
}

// RunDemand generates passenger arrivals, alternating rush-hour and calm
// periods, until the context ends.
func (s *Simulation) RunDemand(ctx context.Context) {
	nodes := s.net.Snapshot().Nodes()
	if len(nodes) < 2 {
		return
	}

	rush := false
	cycle := 0
	for {
		cycle++
		if cycle%10 == 0 {
			rush = !rush
			log.Printf("[sim] demand switch: rush=%v", rush)
		}

		target := int64(8)
		wait := 3 * time.Second
		if rush {
			target = 20
			wait = time.Second
		}

		for i := 0; i < 2 && atomic.LoadInt64(&s.activePax) < target; i++ {
			origin := nodes[s.rng.Intn(len(nodes))].ID
			dest := origin
			for dest == origin {
				dest = nodes[s.rng.Intn(len(nodes))].ID
			}
			s.SpawnPassenger(ctx, origin, dest)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
