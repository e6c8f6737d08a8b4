package workers

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/repository"
	"github.com/jonboulle/clockwork"
)

// Deliverer sends one outbox effect to its destination.
type Deliverer interface {
	Deliver(ctx context.Context, effect *domain.OutboxEffect) error
}

// Dispatcher drains the outbox in insertion order. Card contract effects go
// to the registry deliverer and import batches to the peer deliverer.
type Dispatcher struct {
	outbox    repository.OutboxRepository
	registry  Deliverer
	peer      Deliverer
	clock     clockwork.Clock
	batchSize int

	mu sync.Mutex
}

func NewDispatcher(outbox repository.OutboxRepository, registry, peer Deliverer, clock clockwork.Clock, batchSize int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Dispatcher{
		outbox:    outbox,
		registry:  registry,
		peer:      peer,
		clock:     clock,
		batchSize: batchSize,
	}
}

// RunOnce delivers up to one batch of pending effects. It stops at the first
// failed delivery so that later effects never overtake an earlier one.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending, err := d.outbox.Pending(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load pending effects: %w", err)
	}

	delivered := 0
	for _, effect := range pending {
		if err := d.deliverer(effect).Deliver(ctx, effect); err != nil {
			if markErr := d.outbox.MarkFailed(ctx, effect.ID, err.Error()); markErr != nil {
				log.Printf("ERROR [workers.Dispatcher] failed to record failure of effect %d: %v", effect.ID, markErr)
			}
			return delivered, fmt.Errorf("deliver effect %d (%s): %w", effect.ID, effect.Kind, err)
		}
		if err := d.outbox.MarkDelivered(ctx, effect.ID, d.clock.Now()); err != nil {
			return delivered, fmt.Errorf("mark effect %d delivered: %w", effect.ID, err)
		}
		delivered++
	}
	return delivered, nil
}

func (d *Dispatcher) deliverer(effect *domain.OutboxEffect) Deliverer {
	if effect.Kind == domain.EffectArenaImport {
		return d.peer
	}
	return d.registry
}
