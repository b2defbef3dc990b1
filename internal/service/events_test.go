package service

import (
	"testing"

	"github.com/smartcity/transitnet/internal/domain"
)

func TestEventStreamFanOut(t *testing.T) {
	s := NewEventStream()
	a := s.Subscribe(4)
	b := s.Subscribe(4)

	s.Publish(domain.Event{Type: domain.EventRequestCreated})

	for name, ch := range map[string]<-chan domain.Event{"a": a, "b": b} {
		select {
		case e := <-ch:
			if e.Type != domain.EventRequestCreated {
				t.Errorf("subscriber %s got %s", name, e.Type)
			}
			if e.Timestamp.IsZero() {
				t.Errorf("subscriber %s got an unstamped event", name)
			}
		default:
			t.Errorf("subscriber %s got nothing", name)
		}
	}
}

func TestEventStreamNeverBlocks(t *testing.T) {
	s := NewEventStream()
	s.Subscribe(1)

	// The second publish overflows the buffer and must be dropped silently.
	s.Publish(domain.Event{Type: domain.EventRequestCreated})
	s.Publish(domain.Event{Type: domain.EventRequestAssigned})
}

func TestEventStreamClose(t *testing.T) {
	s := NewEventStream()
	ch := s.Subscribe(1)
	s.Close()

	if _, ok := <-ch; ok {
		t.Error("subscription channel still open after Close")
	}

	// Publishing and subscribing after Close are harmless no-ops.
	s.Publish(domain.Event{Type: domain.EventRequestCreated})
	if _, ok := <-s.Subscribe(1); ok {
		t.Error("post-Close subscription not closed")
	}
	s.Close()
}
