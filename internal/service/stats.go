package service

import (
	"context"
	"sync"

	"github.com/smartcity/transitnet/internal/domain"
	"github.com/smartcity/transitnet/pkg/utils"
)

// Stats aggregates request outcomes. FailureRatio is the user-visible
// failure metric: the share of created requests that ended Cancelled or
// Failed.
type Stats struct {
	Created      int     `json:"created"`
	Assigned     int     `json:"assigned"`
	Completed    int     `json:"completed"`
	Cancelled    int     `json:"cancelled"`
	Failed       int     `json:"failed"`
	FailureRatio float64 `json:"failure_ratio"`
}

// StatsCollector folds the event stream into aggregate counters.
type StatsCollector struct {
	mu    sync.RWMutex
	stats Stats
}

// NewStatsCollector creates a zeroed collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{}
}

// Run consumes events until the channel closes or the context ends.
func (c *StatsCollector) Run(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			c.record(e)
		}
	}
}

func (c *StatsCollector) record(e domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case domain.EventRequestCreated:
		c.stats.Created++
	case domain.EventRequestAssigned:
		c.stats.Assigned++
	case domain.EventRequestCompleted:
		c.stats.Completed++
	case domain.EventRequestCancelled:
		c.stats.Cancelled++
	case domain.EventRequestFailed:
		c.stats.Failed++
	}
}

// Snapshot returns a copy of the current counters.
func (c *StatsCollector) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	if s.Created > 0 {
		s.FailureRatio = utils.RoundTo(float64(s.Cancelled+s.Failed)/float64(s.Created), 3)
	}
	return s
}
