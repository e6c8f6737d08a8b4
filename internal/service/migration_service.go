package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/leaderboard"
	"github.com/dom/hero-arena/internal/repository"
	"github.com/dom/hero-arena/internal/stats"
	"github.com/google/uuid"
)

// ExportTarget is the arena receiving exported stats. Token is a service
// token issued by the target's admin for this arena's instance id.
type ExportTarget struct {
	ID    string
	URL   string
	Token string
}

type MigrationService struct {
	engine *Engine
}

func NewMigrationService(engine *Engine) *MigrationService {
	return &MigrationService{engine: engine}
}

// SetExportTarget names the arena that receives exported stats and restarts
// the export from the first registry page.
func (s *MigrationService) SetExportTarget(ctx context.Context, caller string, target ExportTarget) error {
	return s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		if err := inv.requireAdmin(); err != nil {
			return err
		}
		id := target.ID
		inv.state.ExportTargetID = &id
		inv.state.ExportTargetURL = target.URL
		inv.state.ExportTargetToken = target.Token
		inv.state.ExportNext = 0
		return nil
	})
}

// SetImportSource names the only arena allowed to import stats.
func (s *MigrationService) SetImportSource(ctx context.Context, caller, sourceID string) error {
	return s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		if err := inv.requireAdmin(); err != nil {
			return err
		}
		inv.state.ImportFrom = &sourceID
		return nil
	})
}

// Export sends the registry page under the export cursor to the target. It
// reports whether the pass is complete, which is when the cursor is back at
// the first page.
func (s *MigrationService) Export(ctx context.Context, caller string) (bool, error) {
	var completed bool
	err := s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		if err := inv.requireAdmin(); err != nil {
			return err
		}
		state := inv.state
		if !state.FightHalt {
			return domain.ErrBattlesNotHalted
		}
		if state.PlayerCount == 0 {
			return domain.ErrNoPlayers
		}
		if state.ExportTargetID == nil {
			return domain.ErrExportTargetUnset
		}

		players, err := inv.repos.Player.Page(inv.ctx, state.ExportNext)
		if err != nil {
			return fmt.Errorf("load registry page %d: %w", state.ExportNext, err)
		}
		counters, err := inv.repos.Stats.AllTimeFor(inv.ctx, players)
		if err != nil {
			return err
		}

		batch := domain.ImportBatch{
			BatchID: uuid.New(),
			Stats:   make([]domain.StatsEntry, 0, len(players)),
		}
		for _, id := range players {
			batch.Stats = append(batch.Stats, domain.StatsEntry{PlayerID: id, Counters: counters[id]})
		}

		if state.ExportNext == state.LastPage() {
			total := state.BattleCount + state.PreviousBattles
			batch.BattleCount = &total
			state.ExportNext = 0
		} else {
			state.ExportNext++
		}

		payload, err := json.Marshal(batch)
		if err != nil {
			return fmt.Errorf("marshal import batch: %w", err)
		}
		inv.enqueue(&domain.OutboxEffect{
			Kind:        domain.EffectArenaImport,
			Destination: *state.ExportTargetID,
			URL:         state.ExportTargetURL,
			Payload:     payload,
			Credential:  state.ExportTargetToken,
		})

		completed = state.ExportNext == 0
		return nil
	})
	return completed, err
}

// Import applies one batch exported by the import source. A batch that was
// already applied is acknowledged without changing anything; the result
// reports whether the batch was applied now.
func (s *MigrationService) Import(ctx context.Context, caller string, batch domain.ImportBatch) (bool, error) {
	if batch.BatchID == uuid.Nil {
		return false, domain.ErrMissingBatchID
	}

	var applied bool
	err := s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		state := inv.state
		if state.ImportFrom == nil {
			return domain.ErrImportSourceUnset
		}
		if caller != *state.ImportFrom {
			return domain.ErrImportSourceMismatch
		}

		seen, err := inv.repos.ImportedBatch.Exists(inv.ctx, batch.BatchID)
		if err != nil {
			return fmt.Errorf("check import batch: %w", err)
		}
		if seen {
			return nil
		}

		ids := make([]string, 0, len(batch.Stats))
		for _, entry := range batch.Stats {
			ids = append(ids, entry.PlayerID)
		}
		if err := registerPlayers(inv, ids); err != nil {
			return err
		}

		ledger := stats.NewLedger(inv.repos.Stats)
		for _, entry := range batch.Stats {
			score, err := ledger.Merge(inv.ctx, entry)
			if err != nil {
				return err
			}
			state.AllTimeBoard = leaderboard.Update(state.AllTimeBoard, entry.PlayerID, score, 1, domain.LeaderboardMaxLen)
		}
		if batch.BattleCount != nil {
			state.PreviousBattles += *batch.BattleCount
		}

		err = inv.repos.ImportedBatch.Create(inv.ctx, &domain.ImportedBatch{
			BatchID:     batch.BatchID,
			SourceID:    caller,
			Players:     len(batch.Stats),
			BattleCount: batch.BattleCount,
		})
		if err != nil {
			return fmt.Errorf("record import batch: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}

// ExportStatus returns the export cursor, or nil when no target is set.
func (s *MigrationService) ExportStatus(ctx context.Context, caller string) (*ExportStatusView, error) {
	var view *ExportStatusView
	err := s.engine.Read(ctx, func(_ *repository.Repositories, state *domain.ArenaState) error {
		if !state.IsAdmin(caller) {
			return domain.ErrNotAdmin
		}
		if state.ExportTargetID == nil {
			return nil
		}
		view = &ExportStatusView{Next: state.ExportNext, Last: state.LastPage()}
		return nil
	})
	return view, err
}
