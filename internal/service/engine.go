package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/repository"
	"github.com/dom/hero-arena/internal/rng"
	"github.com/jonboulle/clockwork"
)

// Event is a change pushed to live clients after it has been committed.
type Event struct {
	Type    string
	Payload interface{}
}

const (
	EventBullpenUpdated  = "BULLPEN_UPDATED"
	EventBattleResolved  = "BATTLE_RESOLVED"
	EventBattleStatus    = "BATTLE_STATUS"
	EventTournamentReset = "TOURNAMENT_RESET"
)

// Notifier receives committed events.
type Notifier interface {
	Broadcast(eventType string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(string, interface{}) {}

// invocation is one mutating operation on the arena. Everything it touches
// goes through repos, which are bound to the invocation's transaction.
type invocation struct {
	ctx     context.Context
	repos   *repository.Repositories
	state   *domain.ArenaState
	env     rng.Env
	now     time.Time
	effects []*domain.OutboxEffect
	events  []Event
}

func (inv *invocation) enqueue(effects ...*domain.OutboxEffect) {
	inv.effects = append(inv.effects, effects...)
}

func (inv *invocation) emit(eventType string, payload interface{}) {
	inv.events = append(inv.events, Event{Type: eventType, Payload: payload})
}

func (inv *invocation) requireAdmin() error {
	if !inv.state.IsAdmin(inv.env.Caller) {
		return domain.ErrNotAdmin
	}
	return nil
}

// Engine serializes arena operations. Mutations hold the write lock and run
// in one transaction together with their outbox effects; reads share the
// read lock and always see a committed state.
type Engine struct {
	mu       sync.RWMutex
	tx       repository.Transactor
	repos    *repository.Repositories
	clock    clockwork.Clock
	notifier Notifier
}

func NewEngine(tx repository.Transactor, repos *repository.Repositories, clock clockwork.Clock) *Engine {
	return &Engine{
		tx:       tx,
		repos:    repos,
		clock:    clock,
		notifier: nopNotifier{},
	}
}

// SetNotifier installs the receiver of committed events.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n == nil {
		n = nopNotifier{}
	}
	e.notifier = n
}

// Clock returns the engine's clock.
func (e *Engine) Clock() clockwork.Clock {
	return e.clock
}

// Mutate runs fn as caller. If fn fails nothing is persisted, no effect is
// queued and no event is sent.
func (e *Engine) Mutate(ctx context.Context, caller string, fn func(inv *invocation) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var events []Event
	err := e.tx.Transaction(ctx, func(repos *repository.Repositories) error {
		state, err := repos.Arena.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		state.Height++
		now := e.clock.Now()

		inv := &invocation{
			ctx:   ctx,
			repos: repos,
			state: state,
			now:   now,
			env: rng.Env{
				Height: state.Height,
				Time:   now.Unix(),
				Caller: caller,
			},
		}
		if err := fn(inv); err != nil {
			return err
		}

		if err := repos.Outbox.Enqueue(ctx, inv.effects); err != nil {
			return fmt.Errorf("enqueue effects: %w", err)
		}
		if err := repos.Arena.Save(ctx, state); err != nil {
			return fmt.Errorf("save arena: %w", err)
		}
		events = inv.events
		return nil
	})
	if err != nil {
		return err
	}

	for _, ev := range events {
		e.notifier.Broadcast(ev.Type, ev.Payload)
	}
	return nil
}

// Read runs fn against a committed arena state.
func (e *Engine) Read(ctx context.Context, fn func(repos *repository.Repositories, state *domain.ArenaState) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	state, err := e.repos.Arena.Get(ctx)
	if err != nil {
		return err
	}
	return fn(e.repos, state)
}

// Genesis creates the arena state unless it already exists. It reports
// whether a new arena was created.
func (e *Engine) Genesis(ctx context.Context, init func(now time.Time) (*domain.ArenaState, []*domain.OutboxEffect, error)) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	created := false
	err := e.tx.Transaction(ctx, func(repos *repository.Repositories) error {
		_, err := repos.Arena.Get(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrArenaNotFound) {
			return err
		}

		state, effects, err := init(e.clock.Now())
		if err != nil {
			return err
		}
		if err := repos.Arena.Create(ctx, state); err != nil {
			return fmt.Errorf("create arena: %w", err)
		}
		if err := repos.Outbox.Enqueue(ctx, effects); err != nil {
			return fmt.Errorf("enqueue effects: %w", err)
		}
		created = true
		return nil
	})
	return created, err
}
