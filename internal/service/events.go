package service

import (
	"sync"
	"time"

	"github.com/smartcity/transitnet/internal/domain"
)

// EventStream fans simulation events out to subscribers: the websocket
// broadcaster, the stats collector and the repository persister. Publishing
// never blocks; a slow subscriber loses events rather than stalling agents.
type EventStream struct {
	mu     sync.RWMutex
	subs   []chan domain.Event
	closed bool
}

// NewEventStream creates an empty stream.
func NewEventStream() *EventStream {
	return &EventStream{}
}

// Publish delivers the event to every subscriber, best-effort.
func (s *EventStream) Publish(e domain.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel of future events.
func (s *EventStream) Subscribe(buffer int) <-chan domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan domain.Event, buffer)
	if !s.closed {
		s.subs = append(s.subs, ch)
	} else {
		close(ch)
	}
	return ch
}

// Close closes every subscription channel; further publishes are dropped.
func (s *EventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}
