package agent

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/transitnet/internal/auction"
	"github.com/smartcity/transitnet/internal/config"
	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/internal/network"
)

// StationAddress returns the bus address of the station at a node.
func StationAddress(node string) string { return "station:" + node }

// trackedRequest is a station-owned ride request with its negotiation
// bookkeeping.
type trackedRequest struct {
	request  domain.RideRequest
	retries  int
	cancelCh chan struct{} // closes to abandon an in-flight auction
	assigned string        // winning vehicle, empty until Assigned
}

// Station owns the ride requests created at its node. It detects passenger
// arrivals, runs one Contract Net auction per request, applies the retry
// policy on failure or breakdown, and archives terminal requests.
type Station struct {
	node   string
	cfg    *config.Config
	net    *network.RoadNetwork
	bus    *Bus
	fleet  *FleetRegistry
	events EventSink
	repo   domain.EventRepository

	inbox <-chan domain.Message

	mu       sync.Mutex
	requests map[uuid.UUID]*trackedRequest
}

// NewStation creates a station agent for the node and registers its mailbox.
func NewStation(node string, cfg *config.Config, net *network.RoadNetwork, bus *Bus, fleet *FleetRegistry, events EventSink, repo domain.EventRepository) *Station {
	s := &Station{
		node:     node,
		cfg:      cfg,
		net:      net,
		bus:      bus,
		fleet:    fleet,
		events:   events,
		repo:     repo,
		requests: make(map[uuid.UUID]*trackedRequest),
	}
	s.inbox = bus.Register(StationAddress(node), 64)
	return s
}

// Run executes the station loop until the context is done.
func (s *Station) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.inbox:
			s.handleMessage(ctx, msg)
		}
	}
}

func (s *Station) handleMessage(ctx context.Context, msg domain.Message) {
	switch m := msg.(type) {
	case domain.TravelRequest:
		s.handleTravelRequest(ctx, m)
	case domain.Cancel:
		s.handleCancel(m)
	case domain.Breakdown:
		s.handleBreakdown(ctx, m)
	case domain.Arrival:
		s.handleArrival(m)
	case domain.Refuse:
		s.handleWinnerRefusal(ctx, m)
	case domain.CFP, domain.Propose, domain.Accept, domain.Reject, domain.TrafficChange:
		log.Printf("[station %s] unexpected %T ignored", s.node, m)
	}
}

// handleTravelRequest creates a ride request for the passenger and starts
// its first auction round.
func (s *Station) handleTravelRequest(ctx context.Context, m domain.TravelRequest) {
	req := domain.RideRequest{
		ID:          uuid.New(),
		PassengerID: m.SenderID,
		Origin:      s.node,
		Destination: m.Destination,
		Status:      domain.RequestOpen,
		CreatedAt:   time.Now(),
	}
	tr := &trackedRequest{request: req, cancelCh: make(chan struct{})}

	s.mu.Lock()
	s.requests[req.ID] = tr
	s.mu.Unlock()

	s.publishRequestEvent(domain.EventRequestCreated, req, "")
	go s.runAuction(ctx, tr)
}

// runAuction executes one negotiation round and applies the outcome.
func (s *Station) runAuction(ctx context.Context, tr *trackedRequest) {
	s.mu.Lock()
	if tr.request.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	tr.request.Status = domain.RequestNegotiating
	req := tr.request
	cancelCh := tr.cancelCh
	s.mu.Unlock()

	topo := s.net.Snapshot()
	invitees := s.fleet.EligibleForTrip(topo, req.Origin, req.Destination, s.cfg.Classes)

	coord := auction.NewCoordinator(req, StationAddress(s.node), s.bus, s.cfg.AuctionDeadline)
	result := coord.Run(ctx, invitees, cancelCh)

	switch result.Phase {
	case auction.PhaseAssigned:
		s.markAssigned(tr, result.Winner)
	case auction.PhaseCancelled:
		// handleCancel already closed the request.
	default:
		log.Printf("[station %s] auction for %s got no bids (%d invited)", s.node, req.ID, len(invitees))
		s.retryOrFail(ctx, tr, "no_proposals")
	}
}

func (s *Station) markAssigned(tr *trackedRequest, winner string) {
	s.mu.Lock()
	if tr.request.Status.Terminal() {
		// The request closed while the coordinator was selecting: the
		// winner already holds an Accept, so release it explicitly.
		id := tr.request.ID
		s.mu.Unlock()
		s.bus.Send(winner, domain.Cancel{SenderID: StationAddress(s.node), RequestID: id})
		return
	}
	tr.request.Status = domain.RequestAssigned
	tr.request.AssignedVehicle = winner
	tr.assigned = winner
	req := tr.request
	s.mu.Unlock()

	s.publishRequestEvent(domain.EventRequestAssigned, req, winner)
	s.bus.Send(req.PassengerID, domain.Accept{SenderID: StationAddress(s.node), RequestID: req.ID, StationID: StationAddress(s.node)})
}

// retryOrFail re-broadcasts a fresh CFP for the same request, or closes it
// as Failed once the retry budget is spent.
func (s *Station) retryOrFail(ctx context.Context, tr *trackedRequest, reason string) {
	s.mu.Lock()
	if tr.request.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	if tr.retries < s.cfg.StationRetryLimit {
		tr.retries++
		tr.request.Status = domain.RequestOpen
		tr.request.AssignedVehicle = ""
		tr.assigned = ""
		s.mu.Unlock()
		// Back off before the next round: the fleet may be transiently
		// busy and instant retries would burn the budget in microseconds.
		go func() {
			timer := time.NewTimer(s.cfg.RetryBackoff)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			s.runAuction(ctx, tr)
		}()
		return
	}
	tr.request.Status = domain.RequestFailed
	tr.request.ClosedAt = time.Now()
	req := tr.request
	delete(s.requests, req.ID)
	s.mu.Unlock()

	s.publishRequestEvent(domain.EventRequestFailed, req, reason)
	s.bus.Send(req.PassengerID, domain.Reject{SenderID: StationAddress(s.node), RequestID: req.ID, Reason: reason})
	s.archive(req)
}

// handleCancel abandons the passenger's request: any in-flight auction is
// aborted and a committed vehicle is released. Passengers never learn
// their request id, so a nil id is resolved through the sender identity.
func (s *Station) handleCancel(m domain.Cancel) {
	s.mu.Lock()
	id := m.RequestID
	if id == uuid.Nil {
		for rid, tr := range s.requests {
			if tr.request.PassengerID == m.SenderID {
				id = rid
				break
			}
		}
	}
	tr, ok := s.requests[id]
	if !ok || tr.request.Status.Terminal() {
		s.mu.Unlock()
		return
	}
	tr.request.Status = domain.RequestCancelled
	tr.request.ClosedAt = time.Now()
	req := tr.request
	assigned := tr.assigned
	close(tr.cancelCh)
	delete(s.requests, req.ID)
	s.mu.Unlock()

	if assigned != "" {
		s.bus.Send(assigned, domain.Cancel{SenderID: StationAddress(s.node), RequestID: req.ID})
	}
	s.publishRequestEvent(domain.EventRequestCancelled, req, "patience_expired")
	s.archive(req)
}

// handleBreakdown marks the in-progress request Failed for this attempt
// and re-auctions it while the retry budget lasts.
func (s *Station) handleBreakdown(ctx context.Context, m domain.Breakdown) {
	s.mu.Lock()
	tr, ok := s.requests[m.RequestID]
	s.mu.Unlock()
	if !ok {
		return
	}
	log.Printf("[station %s] vehicle %s broke down (%s), re-auctioning %s", s.node, m.SenderID, m.Issue, m.RequestID)
	s.retryOrFail(ctx, tr, "vehicle_breakdown")
}

// handleWinnerRefusal covers a winner that could not commit after Accept
// (stale bid, lost route, fuel): treat like a failed attempt.
func (s *Station) handleWinnerRefusal(ctx context.Context, m domain.Refuse) {
	s.mu.Lock()
	tr, ok := s.requests[m.RequestID]
	s.mu.Unlock()
	if !ok {
		return
	}
	log.Printf("[station %s] winner %s refused %s (%s)", s.node, m.SenderID, m.RequestID, m.Reason)
	s.retryOrFail(ctx, tr, m.Reason)
}

func (s *Station) handleArrival(m domain.Arrival) {
	s.mu.Lock()
	tr, ok := s.requests[m.RequestID]
	if !ok {
		s.mu.Unlock()
		return
	}
	tr.request.Status = domain.RequestCompleted
	tr.request.ClosedAt = time.Now()
	req := tr.request
	delete(s.requests, req.ID)
	s.mu.Unlock()

	s.publishRequestEvent(domain.EventRequestCompleted, req, "")
	s.bus.Send(req.PassengerID, domain.Accept{SenderID: StationAddress(s.node), RequestID: req.ID})
	s.archive(req)
}

func (s *Station) publishRequestEvent(t domain.EventType, req domain.RideRequest, detail string) {
	if s.events == nil {
		return
	}
	id := req.ID
	s.events.Publish(domain.Event{
		Type:      t,
		RequestID: &id,
		VehicleID: req.AssignedVehicle,
		Node:      req.Origin,
		Detail:    detail,
		Timestamp: time.Now(),
	})
}

// archive persists a closed request asynchronously; persistence failures
// are logged, never propagated into the negotiation path.
func (s *Station) archive(req domain.RideRequest) {
	if s.repo == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.SaveRequestArchive(ctx, req); err != nil {
			log.Printf("[station %s] failed to archive request %s: %v", s.node, req.ID, err)
		}
	}()
}
