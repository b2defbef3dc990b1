package agent

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/transitnet/internal/config"
	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
	"github.com/smartcity/transitnet/internal/routing"
	"github.com/smartcity/transitnet/pkg/utils"
)

// pendingBid tracks the single outstanding proposal a vehicle may have.
type pendingBid struct {
	auctionID   uuid.UUID
	requestID   uuid.UUID
	origin      string
	destination string
}

// trip is the committed assignment of a moving vehicle.
type trip struct {
	requestID   uuid.UUID
	stationID   string
	destination string
	waypoints   []string // remaining stops: pickup origin, then destination
}

// Vehicle is the agent owning one vehicle's lifecycle: bidding, movement,
// breakdown and refuel. It is the only writer of its state; observers get
// snapshots through the fleet registry.
type Vehicle struct {
	id           string
	class        domain.VehicleClass
	caps         network.CapabilitySet
	consumesFuel bool

	cfg    *config.Config
	router *routing.Router
	bus    *Bus
	fleet  *FleetRegistry
	events EventSink
	rng    *rand.Rand

	inbox <-chan domain.Message

	node     string
	fuel     float64
	phase    domain.VehiclePhase
	pending  *pendingBid
	trip     *trip
	route    []network.Edge
	routeIdx int

	timer *time.Timer
}

// NewVehicle creates a vehicle agent and registers its mailbox. A nil rng
// gets a time-seeded one.
func NewVehicle(spec config.VehicleSpec, cfg *config.Config, router *routing.Router, bus *Bus, fleet *FleetRegistry, events EventSink, rng *rand.Rand) *Vehicle {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	v := &Vehicle{
		id:           spec.ID,
		class:        spec.Class,
		caps:         cfg.Classes[spec.Class],
		consumesFuel: spec.Class != domain.ClassTram,
		cfg:          cfg,
		router:       router,
		bus:          bus,
		fleet:        fleet,
		events:       events,
		rng:          rng,
		node:         spec.StartNode,
		fuel:         cfg.Fuel.Capacity,
		phase:        domain.PhaseIdle,
	}
	v.inbox = bus.Register(v.id, 64)
	v.publish()
	return v
}

// ID returns the vehicle's bus address.
func (v *Vehicle) ID() string { return v.id }

// Run executes the agent loop until the context is done.
func (v *Vehicle) Run(ctx context.Context) {
	defer v.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-v.inbox:
			v.handleMessage(msg)
		case <-v.timerC():
			v.timer = nil
			v.handleTimer()
		}
	}
}

func (v *Vehicle) handleMessage(msg domain.Message) {
	switch m := msg.(type) {
	case domain.CFP:
		v.handleCFP(m)
	case domain.Accept:
		v.handleAccept(m)
	case domain.Reject:
		v.handleReject(m)
	case domain.Cancel:
		v.handleCancel(m)
	case domain.TrafficChange:
		v.handleTrafficChange(m)
	case domain.TravelRequest, domain.Propose, domain.Refuse, domain.Breakdown, domain.Arrival:
		log.Printf("[%s] unexpected %T ignored", v.id, m)
	}
}

// handleCFP evaluates a call-for-proposal. The vehicle fails closed: it
// abstains with an explicit Refuse whenever the route is infeasible for its
// capability set or fuel cannot cover the round-trip-equivalent.
func (v *Vehicle) handleCFP(m domain.CFP) {
	refuse := func(reason string) {
		v.bus.Send(m.ReplyTo, domain.Refuse{SenderID: v.id, AuctionID: m.AuctionID, RequestID: m.RequestID, Reason: reason})
	}

	if v.phase != domain.PhaseIdle {
		refuse("not_idle")
		return
	}

	pickup, err := v.router.ShortestPath(v.node, m.Origin, v.caps)
	if err != nil {
		refuse("route_impossible")
		return
	}
	ride, err := v.router.ShortestPath(m.Origin, m.Destination, v.caps)
	if err != nil {
		refuse("route_impossible")
		return
	}

	fuelCost := (pickup.BaseCost() + ride.BaseCost()) * v.cfg.Fuel.Consumption
	if v.consumesFuel && v.fuel < fuelCost*2 {
		refuse("insufficient_fuel")
		return
	}

	eta := pickup.Cost + ride.Cost
	penalty := pickup.Penalty() + ride.Penalty()
	cost := utils.RoundTo(v.cfg.Bid.Fuel*fuelCost+v.cfg.Bid.ETA*eta+v.cfg.Bid.Traffic*penalty, 3)

	if !v.bus.Send(m.ReplyTo, domain.Propose{
		SenderID:    v.id,
		AuctionID:   m.AuctionID,
		RequestID:   m.RequestID,
		Cost:        cost,
		SubmittedAt: time.Now(),
	}) {
		return // auction already gone, stay idle
	}

	v.pending = &pendingBid{
		auctionID:   m.AuctionID,
		requestID:   m.RequestID,
		origin:      m.Origin,
		destination: m.Destination,
	}
	v.setPhase(domain.PhaseNegotiating)
	v.setTimer(v.cfg.AcceptGrace)
}

// handleAccept commits the vehicle to the won request. The route computed
// at bid time is re-verified once more: time has elapsed and both the
// graph and the fuel level may have moved.
func (v *Vehicle) handleAccept(m domain.Accept) {
	if v.phase != domain.PhaseNegotiating || v.pending == nil || v.pending.auctionID != m.AuctionID {
		// Stale Accept: the grace period already expired or the vehicle
		// moved on. The station re-auctions.
		v.bus.Send(m.StationID, domain.Refuse{SenderID: v.id, AuctionID: m.AuctionID, RequestID: m.RequestID, Reason: "bid_expired"})
		return
	}

	p := v.pending
	v.pending = nil
	v.stopTimer()

	fail := func(reason string) {
		v.bus.Send(m.StationID, domain.Refuse{SenderID: v.id, AuctionID: m.AuctionID, RequestID: m.RequestID, Reason: reason})
		v.setPhase(domain.PhaseIdle)
	}

	edges, _, err := v.planVia(v.node, []string{p.origin, p.destination})
	if err != nil {
		fail("route_lost")
		return
	}
	fuelCost := baseCost(edges) * v.cfg.Fuel.Consumption
	if v.consumesFuel && v.fuel < fuelCost {
		fail("insufficient_fuel")
		return
	}

	v.trip = &trip{
		requestID:   p.requestID,
		stationID:   m.StationID,
		destination: p.destination,
		waypoints:   []string{p.origin, p.destination},
	}
	v.route = edges
	v.routeIdx = 0
	v.popWaypoints() // already at the pickup origin?
	v.setPhase(domain.PhaseMoving)

	if len(v.route) == 0 {
		v.arrive()
		return
	}
	v.setTimer(v.travelTime(v.route[0]))
}

func (v *Vehicle) handleReject(m domain.Reject) {
	if v.phase != domain.PhaseNegotiating || v.pending == nil || v.pending.auctionID != m.AuctionID {
		return
	}
	v.pending = nil
	v.stopTimer()
	v.setPhase(domain.PhaseIdle)
	v.maybeRefuel()
}

// handleCancel reverts Negotiating/Moving to Idle without penalty when the
// cancelled request is the one the vehicle holds.
func (v *Vehicle) handleCancel(m domain.Cancel) {
	switch {
	case v.phase == domain.PhaseNegotiating && v.pending != nil && v.pending.requestID == m.RequestID:
		v.pending = nil
		v.stopTimer()
		v.setPhase(domain.PhaseIdle)
	case v.phase == domain.PhaseMoving && v.trip != nil && v.trip.requestID == m.RequestID:
		v.trip = nil
		v.route = nil
		v.routeIdx = 0
		v.stopTimer()
		v.setPhase(domain.PhaseIdle)
		v.maybeRefuel()
	}
}

// handleTrafficChange triggers mid-trip recomputation when the change
// intersects the remaining route. The vehicle reroutes only when the fresh
// cost exceeds the old remaining cost by more than the tolerance ratio.
func (v *Vehicle) handleTrafficChange(m domain.TrafficChange) {
	if v.phase != domain.PhaseMoving || v.trip == nil || v.routeIdx >= len(v.route) {
		return
	}
	changed := make(map[string]struct{}, len(m.EdgeIDs))
	for _, id := range m.EdgeIDs {
		changed[id] = struct{}{}
	}
	intersects := false
	for _, e := range v.route[v.routeIdx:] {
		if _, ok := changed[e.ID]; ok {
			intersects = true
			break
		}
	}
	if !intersects {
		return
	}

	// The edge being traversed is committed; replan from its end node.
	from := v.route[v.routeIdx].To
	var oldRemaining float64
	for _, e := range v.route[v.routeIdx+1:] {
		oldRemaining += e.Weight
	}

	fresh, freshCost, err := v.planVia(from, v.remainingWaypoints(from))
	if err != nil {
		log.Printf("[%s] reroute check failed: %v", v.id, err)
		return
	}
	if !routing.ShouldReroute(oldRemaining, freshCost, v.cfg.Traffic.RerouteTolerance) {
		// Marginal change, keep the committed route.
		return
	}

	tail := make([]network.Edge, 0, v.routeIdx+1+len(fresh))
	tail = append(tail, v.route[:v.routeIdx+1]...)
	tail = append(tail, fresh...)
	v.route = tail
	log.Printf("[%s] rerouted after traffic change, %d edges remain", v.id, len(v.route)-v.routeIdx-1)
	v.publish()
}

func (v *Vehicle) handleTimer() {
	switch v.phase {
	case domain.PhaseNegotiating:
		// No Accept/Reject within the grace period: implicit reject.
		v.pending = nil
		v.setPhase(domain.PhaseIdle)
		v.maybeRefuel()
	case domain.PhaseMoving:
		v.completeEdge()
	case domain.PhaseMaintenance:
		v.setPhase(domain.PhaseRefueling)
		v.setTimer(v.cfg.RefuelDuration)
	case domain.PhaseRefueling:
		v.fuel = v.cfg.Fuel.Capacity
		v.setPhase(domain.PhaseIdle)
	}
}

// completeEdge finishes the traversal of the current edge: advance the
// position, burn fuel, roll for breakdown and schedule the next hop.
func (v *Vehicle) completeEdge() {
	e := v.route[v.routeIdx]
	v.node = e.To
	if v.consumesFuel {
		v.fuel = utils.Clamp(v.fuel-e.BaseWeight*v.cfg.Fuel.Consumption, 0, v.cfg.Fuel.Capacity)
	}
	v.popWaypoints()

	if v.routeIdx >= len(v.route)-1 || len(v.trip.waypoints) == 0 {
		v.arrive()
		return
	}

	if v.rng.Float64() < v.cfg.BreakdownRate {
		v.breakdown("engine_fail")
		return
	}

	v.routeIdx++
	next := v.route[v.routeIdx]
	if v.consumesFuel && v.fuel < next.BaseWeight*v.cfg.Fuel.Consumption {
		v.breakdown("no_fuel")
		return
	}
	v.publish()
	v.setTimer(v.travelTime(next))
}

func (v *Vehicle) arrive() {
	t := v.trip
	v.trip = nil
	v.route = nil
	v.routeIdx = 0
	v.setPhase(domain.PhaseIdle)
	if t != nil {
		v.bus.Send(t.stationID, domain.Arrival{SenderID: v.id, RequestID: t.requestID, Node: v.node})
	}
	v.maybeRefuel()
}

// breakdown aborts the current trip, informs the owning station so the
// request can be re-auctioned, and enters the repair cycle.
func (v *Vehicle) breakdown(issue string) {
	if v.trip != nil {
		v.bus.Send(v.trip.stationID, domain.Breakdown{SenderID: v.id, RequestID: v.trip.requestID, Node: v.node, Issue: issue})
	}
	v.trip = nil
	v.route = nil
	v.routeIdx = 0
	v.setPhase(domain.PhaseMaintenance)
	v.setTimer(v.cfg.RepairDuration)
}

// maybeRefuel sends an idle vehicle to the pump when the tank is below the
// reserve threshold.
func (v *Vehicle) maybeRefuel() {
	if v.phase != domain.PhaseIdle || !v.consumesFuel || v.fuel >= v.cfg.Fuel.Reserve {
		return
	}
	v.setPhase(domain.PhaseRefueling)
	v.setTimer(v.cfg.RefuelDuration)
}

// baseCost sums the base weights of a planned edge sequence.
func baseCost(edges []network.Edge) float64 {
	var sum float64
	for _, e := range edges {
		sum += e.BaseWeight
	}
	return sum
}

// planVia concatenates shortest-path legs through the given waypoints.
func (v *Vehicle) planVia(from string, waypoints []string) ([]network.Edge, float64, error) {
	var edges []network.Edge
	var cost float64
	cur := from
	for _, wp := range waypoints {
		if wp == cur {
			continue
		}
		leg, err := v.router.ShortestPath(cur, wp, v.caps)
		if err != nil {
			return nil, 0, err
		}
		edges = append(edges, leg.Edges...)
		cost += leg.Cost
		cur = wp
	}
	return edges, cost, nil
}

// remainingWaypoints returns the waypoints still ahead, skipping one the
// vehicle is about to hit at the end of the committed edge.
func (v *Vehicle) remainingWaypoints(from string) []string {
	if v.trip == nil {
		return nil
	}
	wps := v.trip.waypoints
	if len(wps) > 0 && wps[0] == from {
		wps = wps[1:]
	}
	return wps
}

func (v *Vehicle) popWaypoints() {
	if v.trip == nil {
		return
	}
	for len(v.trip.waypoints) > 0 && v.trip.waypoints[0] == v.node {
		v.trip.waypoints = v.trip.waypoints[1:]
	}
}

func (v *Vehicle) travelTime(e network.Edge) time.Duration {
	return time.Duration(e.Weight * float64(v.cfg.TimeScale))
}

func (v *Vehicle) setPhase(p domain.VehiclePhase) {
	if v.phase == p {
		return
	}
	v.phase = p
	v.publish()
}

// publish pushes the current snapshot to the fleet registry and emits a
// state-change event.
func (v *Vehicle) publish() {
	snap := domain.VehicleSnapshot{
		ID:        v.id,
		Class:     v.class,
		Node:      v.node,
		Fuel:      utils.RoundTo(v.fuel, 2),
		Phase:     v.phase,
		UpdatedAt: time.Now(),
	}
	if v.trip != nil {
		id := v.trip.requestID
		snap.RequestID = &id
		if v.routeIdx < len(v.route) {
			remaining := v.route[v.routeIdx:]
			ids := make([]string, len(remaining))
			for i, e := range remaining {
				ids[i] = e.ID
			}
			snap.Route = ids
		}
	}
	v.fleet.Update(snap)
	if v.events != nil {
		v.events.Publish(domain.Event{
			Type:      domain.EventVehicleStateChanged,
			VehicleID: v.id,
			Node:      v.node,
			Phase:     v.phase,
			RequestID: snap.RequestID,
			Timestamp: time.Now(),
		})
	}
}

func (v *Vehicle) setTimer(d time.Duration) {
	v.stopTimer()
	v.timer = time.NewTimer(d)
}

func (v *Vehicle) stopTimer() {
	if v.timer == nil {
		return
	}
	if !v.timer.Stop() {
		select {
		case <-v.timer.C:
		default:
		}
	}
	v.timer = nil
}

func (v *Vehicle) timerC() <-chan time.Time {
	if v.timer == nil {
		return nil
	}
	return v.timer.C
}
