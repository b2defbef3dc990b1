package auction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/smartcity/transitnet/internal/domain"
)

// Phase is the state of one Contract Net auction instance.
type Phase string

const (
	PhaseOpen         Phase = "open"
	PhaseCFPBroadcast Phase = "cfp_broadcast"
	PhaseCollecting   Phase = "collecting"
	PhaseSelecting    Phase = "selecting"
	PhaseExpired      Phase = "expired"
	PhaseAssigned     Phase = "assigned"
	PhaseFailed       Phase = "failed"
	PhaseCancelled    Phase = "cancelled"
)

var (
	// ErrStaleBid marks a bid that arrived late or from a bidder that
	// already bid in this round. Logged and ignored, never fatal.
	ErrStaleBid = errors.New("auction: stale bid")
	// ErrAuctionExpired marks a bid received after the auction closed.
	ErrAuctionExpired = errors.New("auction: expired")
)

// Bid is one vehicle's proposal. Ephemeral: it lives only for the duration
// of one auction round.
type Bid struct {
	RequestID   uuid.UUID
	BidderID    string
	Cost        float64
	SubmittedAt time.Time
}

// Result is the outcome of one auction round.
type Result struct {
	Phase    Phase
	Winner   string
	Winning  Bid
	BidCount int
}

// Transport is the outbound message surface the coordinator needs. The
// agent bus satisfies it.
type Transport interface {
	Send(to string, msg domain.Message) bool
	Register(id string, buffer int) <-chan domain.Message
	Unregister(id string)
}

// Coordinator runs a single Contract Net auction for one ride request:
// broadcast a call-for-proposal, collect bids within a deadline, select the
// winner, notify all bidders. All outbound messages are one-shot and
// best-effort; retry policy belongs to the owning station.
type Coordinator struct {
	ID        uuid.UUID
	request   domain.RideRequest
	stationID string
	transport Transport
	deadline  time.Duration

	phase Phase
	bids  map[string]Bid
}

// NewCoordinator creates an auction instance for the request.
func NewCoordinator(request domain.RideRequest, stationID string, transport Transport, deadline time.Duration) *Coordinator {
	return &Coordinator{
		ID:        uuid.New(),
		request:   request,
		stationID: stationID,
		transport: transport,
		deadline:  deadline,
		phase:     PhaseOpen,
		bids:      make(map[string]Bid),
	}
}

// Phase returns the auction's current phase.
func (c *Coordinator) Phase() Phase { return c.phase }

func (c *Coordinator) address() string { return "auction:" + c.ID.String() }

// Run executes one full auction round against the invited vehicles and
// blocks until a result is reached. A close of cancel abandons the auction:
// pending bids are discarded and every bidder is rejected.
func (c *Coordinator) Run(ctx context.Context, invitees []string, cancel <-chan struct{}) Result {
	if len(invitees) == 0 {
		c.phase = PhaseFailed
		return Result{Phase: PhaseFailed}
	}

	inbox := c.transport.Register(c.address(), len(invitees)*2)
	defer c.transport.Unregister(c.address())

	cutoff := time.Now().Add(c.deadline)
	c.phase = PhaseCFPBroadcast
	for _, v := range invitees {
		c.transport.Send(v, domain.CFP{
			SenderID:    c.address(),
			AuctionID:   c.ID,
			RequestID:   c.request.ID,
			StationID:   c.stationID,
			Origin:      c.request.Origin,
			Destination: c.request.Destination,
			ReplyTo:     c.address(),
			Deadline:    cutoff,
		})
	}

	c.phase = PhaseCollecting
	timer := time.NewTimer(time.Until(cutoff))
	defer timer.Stop()

	responded := make(map[string]struct{}, len(invitees))

collect:
	for len(responded) < len(invitees) {
		select {
		case <-ctx.Done():
			c.abandon()
			return Result{Phase: PhaseCancelled}
		case <-cancel:
			c.abandon()
			return Result{Phase: PhaseCancelled, BidCount: len(c.bids)}
		case <-timer.C:
			c.phase = PhaseExpired
			break collect
		case msg := <-inbox:
			switch m := msg.(type) {
			case domain.Propose:
				bid := Bid{RequestID: m.RequestID, BidderID: m.SenderID, Cost: m.Cost, SubmittedAt: m.SubmittedAt}
				if err := c.receiveBid(bid, cutoff); err != nil {
					log.Printf("[auction %s] dropped bid from %s: %v", c.ID, m.SenderID, err)
					continue
				}
				responded[m.SenderID] = struct{}{}
			case domain.Refuse:
				responded[m.SenderID] = struct{}{}
			default:
				log.Printf("[auction %s] unexpected %T ignored", c.ID, m)
			}
		}
	}

	return c.selectWinner()
}

// receiveBid validates a bid against the collecting window. Bids outside
// the Collecting phase, past the deadline, for the wrong request or from a
// bidder that already bid are stale.
func (c *Coordinator) receiveBid(b Bid, cutoff time.Time) error {
	if c.phase != PhaseCollecting {
		return fmt.Errorf("phase %s: %w", c.phase, ErrAuctionExpired)
	}
	if time.Now().After(cutoff) {
		return ErrAuctionExpired
	}
	if b.RequestID != c.request.ID {
		return fmt.Errorf("request mismatch: %w", ErrStaleBid)
	}
	if _, dup := c.bids[b.BidderID]; dup {
		return fmt.Errorf("duplicate bidder %s: %w", b.BidderID, ErrStaleBid)
	}
	c.bids[b.BidderID] = b
	return nil
}

// selectWinner picks the minimum-cost bid, breaking ties by earliest
// submission and then lowest bidder id, and notifies every bidder.
func (c *Coordinator) selectWinner() Result {
	c.phase = PhaseSelecting
	if len(c.bids) == 0 {
		c.phase = PhaseFailed
		return Result{Phase: PhaseFailed}
	}

	ranked := make([]Bid, 0, len(c.bids))
	for _, b := range c.bids {
		ranked = append(ranked, b)
	}
	sort.Slice(ranked, func(i, j int) bool { return bidLess(ranked[i], ranked[j]) })

	winner := ranked[0]
	c.transport.Send(winner.BidderID, domain.Accept{
		SenderID:  c.address(),
		AuctionID: c.ID,
		RequestID: c.request.ID,
		StationID: c.stationID,
	})
	for _, b := range ranked[1:] {
		c.transport.Send(b.BidderID, domain.Reject{
			SenderID:  c.address(),
			AuctionID: c.ID,
			RequestID: c.request.ID,
			Reason:    "better_proposal_found",
		})
	}

	c.phase = PhaseAssigned
	return Result{Phase: PhaseAssigned, Winner: winner.BidderID, Winning: winner, BidCount: len(ranked)}
}

// abandon discards pending bids and rejects every bidder so committed
// vehicles release the negotiation.
func (c *Coordinator) abandon() {
	for bidder := range c.bids {
		c.transport.Send(bidder, domain.Reject{
			SenderID:  c.address(),
			AuctionID: c.ID,
			RequestID: c.request.ID,
			Reason:    "request_cancelled",
		})
	}
	c.bids = make(map[string]Bid)
	c.phase = PhaseCancelled
}

func bidLess(a, b Bid) bool {
	if a.Cost != b.Cost {
		return a.Cost < b.Cost
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.BidderID < b.BidderID
}
