package service

import (
	"testing"

	"github.com/smartcity/transitnet/internal/domain"
)

func TestStatsCollector(t *testing.T) {
	c := NewStatsCollector()
	feed := []domain.EventType{
		domain.EventRequestCreated,
		domain.EventRequestCreated,
		domain.EventRequestCreated,
		domain.EventRequestCreated,
		domain.EventRequestAssigned,
		domain.EventRequestAssigned,
		domain.EventRequestCompleted,
		domain.EventRequestCancelled,
		domain.EventRequestFailed,
		domain.EventVehicleStateChanged, // ignored by the counters
	}
	for _, et := range feed {
		c.record(domain.Event{Type: et})
	}

	got := c.Snapshot()
	want := Stats{Created: 4, Assigned: 2, Completed: 1, Cancelled: 1, Failed: 1, FailureRatio: 0.5}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestStatsZeroRequests(t *testing.T) {
	got := NewStatsCollector().Snapshot()
	if got.FailureRatio != 0 {
		t.Errorf("failure ratio = %.3f, want 0 before any request", got.FailureRatio)
	}
}
