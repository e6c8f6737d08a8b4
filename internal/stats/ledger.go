// Package stats keeps per-player all-time and tournament counters.
package stats

import (
	"context"
	"fmt"

	"github.com/dom/hero-arena/internal/battle"
	"github.com/dom/hero-arena/internal/domain"
)

// Store loads and saves counter rows. Loads return a zero row for players
// that have none yet.
type Store interface {
	AllTime(ctx context.Context, playerID string) (*domain.PlayerStats, error)
	SaveAllTime(ctx context.Context, stats *domain.PlayerStats) error
	Tourney(ctx context.Context, playerID string) (*domain.TourneyStats, error)
	SaveTourney(ctx context.Context, stats *domain.TourneyStats) error
}

// Scores are a player's scores after an update.
type Scores struct {
	AllTime int32
	Tourney int32
}

// Record adds one battle with the given outcome to c.
func Record(c *domain.Counters, outcome battle.Outcome) {
	c.Score += int32(outcome.Delta())
	c.Battles++
	switch outcome {
	case battle.Win:
		c.Wins++
	case battle.Tie:
		c.Ties++
	case battle.ThirdInTwoWayTie:
		c.ThirdInTwoWayTies++
	default:
		c.Losses++
	}
}

// Current returns the tournament counters as of epochStart. Rows last
// touched before the tournament began count as zero.
func Current(t *domain.TourneyStats, epochStart int64) domain.Counters {
	if t == nil || t.LastSeen < epochStart {
		return domain.Counters{}
	}
	return t.Counters
}

type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Apply records one battle for playerID in both the all-time and the
// tournament counters and returns the new scores.
func (l *Ledger) Apply(ctx context.Context, playerID string, outcome battle.Outcome, epochStart, now int64) (*Scores, error) {
	all, err := l.store.AllTime(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load stats for %s: %w", playerID, err)
	}
	Record(&all.Counters, outcome)
	if err := l.store.SaveAllTime(ctx, all); err != nil {
		return nil, fmt.Errorf("save stats for %s: %w", playerID, err)
	}

	tourney, err := l.store.Tourney(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load tournament stats for %s: %w", playerID, err)
	}
	tourney.Counters = Current(tourney, epochStart)
	tourney.LastSeen = now
	Record(&tourney.Counters, outcome)
	if err := l.store.SaveTourney(ctx, tourney); err != nil {
		return nil, fmt.Errorf("save tournament stats for %s: %w", playerID, err)
	}

	return &Scores{AllTime: all.Score, Tourney: tourney.Score}, nil
}

// Merge sums imported counters into the player's all-time counters and
// returns the new all-time score.
func (l *Ledger) Merge(ctx context.Context, entry domain.StatsEntry) (int32, error) {
	all, err := l.store.AllTime(ctx, entry.PlayerID)
	if err != nil {
		return 0, fmt.Errorf("load stats for %s: %w", entry.PlayerID, err)
	}
	all.Add(entry.Counters)
	if err := l.store.SaveAllTime(ctx, all); err != nil {
		return 0, fmt.Errorf("save stats for %s: %w", entry.PlayerID, err)
	}
	return all.Score, nil
}

// Lookup returns a player's all-time and current tournament counters.
func (l *Ledger) Lookup(ctx context.Context, playerID string, epochStart int64) (allTime, tourney domain.Counters, err error) {
	all, err := l.store.AllTime(ctx, playerID)
	if err != nil {
		return allTime, tourney, err
	}
	t, err := l.store.Tourney(ctx, playerID)
	if err != nil {
		return allTime, tourney, err
	}
	return all.Counters, Current(t, epochStart), nil
}
