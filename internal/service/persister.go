package service

import (
	"context"
	"log"

	"github.com/smartcity/transitnet/internal/domain"
)

// Persister writes the event stream through the repository. Persistence
// failures are logged and never reach the negotiation path.
type Persister struct {
	repo domain.EventRepository
}

// NewPersister creates a persister over the repository.
func NewPersister(repo domain.EventRepository) *Persister {
	return &Persister{repo: repo}
}

// Run consumes events until the channel closes or the context ends.
func (p *Persister) Run(ctx context.Context, events <-chan domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := p.repo.SaveEvent(ctx, e); err != nil {
				log.Printf("[persister] failed to save event %s: %v", e.Type, err)
			}
		}
	}
}
