package agent

import (
	"log"
	"sync"

	"github.com/smartcity/transitnet/internal/domain"
)

// Bus is the in-process message transport. Each agent registers a buffered
// mailbox under its address; sends are best-effort and never block the
// sender. Messages from one sender to one receiver preserve send order;
// nothing is guaranteed across senders.
type Bus struct {
	mu    sync.RWMutex
	boxes map[string]chan domain.Message
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{boxes: make(map[string]chan domain.Message)}
}

// Register creates a mailbox for the address and returns its receive side.
// Registering an existing address replaces the old mailbox.
func (b *Bus) Register(id string, buffer int) <-chan domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan domain.Message, buffer)
	b.boxes[id] = ch
	return ch
}

// Unregister removes the mailbox. In-flight messages are dropped.
func (b *Bus) Unregister(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.boxes, id)
}

// Send delivers a message to the addressed mailbox. Returns false when the
// address is unknown or the mailbox is full; delivery is best-effort by
// design of the negotiation protocol, which recovers via timeouts.
func (b *Bus) Send(to string, msg domain.Message) bool {
	b.mu.RLock()
	ch, ok := b.boxes[to]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
		return true
	default:
		log.Printf("[bus] mailbox %s full, dropped %T from %s", to, msg, msg.Sender())
		return false
	}
}
