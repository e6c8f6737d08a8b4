package service

import (
	"context"
	"fmt"

	"github.com/dom/hero-arena/internal/assetregistry"
	"github.com/dom/hero-arena/internal/config"
	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/repository"
)

// SystemCaller is the caller id of scheduled jobs.
const SystemCaller = "system"

// DefaultDumpLimit applies when a dump request carries no limit.
const DefaultDumpLimit = 256

type AdminService struct {
	engine *Engine
	auth   *AuthService
	cfg    *config.Config
}

func NewAdminService(engine *Engine, auth *AuthService, cfg *config.Config) *AdminService {
	return &AdminService{
		engine: engine,
		auth:   auth,
		cfg:    cfg,
	}
}

// IsAdmin reports whether caller currently administers the arena.
func (s *AdminService) IsAdmin(ctx context.Context, caller string) (bool, error) {
	var admin bool
	err := s.engine.Read(ctx, func(_ *repository.Repositories, state *domain.ArenaState) error {
		admin = state.IsAdmin(caller)
		return nil
	})
	return admin, err
}

// SetBattleStatus halts or resumes battles. Halting returns every waiting
// hero to its owner.
func (s *AdminService) SetBattleStatus(ctx context.Context, caller string, stop bool) error {
	return s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		if err := inv.requireAdmin(); err != nil {
			return err
		}
		state := inv.state
		if !stop && state.ExportNext != 0 {
			return domain.ErrExportInProgress
		}

		if stop && len(state.Heroes) > 0 {
			transfers, err := assetregistry.TransfersByVersion(state.Heroes, state.CardVersions)
			if err != nil {
				return err
			}
			inv.enqueue(transfers...)
			state.Heroes = nil
			inv.emit(EventBullpenUpdated, BullpenEvent{HeroesWaiting: 0})
		}

		state.FightHalt = stop
		inv.emit(EventBattleStatus, BattleStatusEvent{Halted: stop})
		return nil
	})
}

func (s *AdminService) AddBots(ctx context.Context, caller string, bots []string) error {
	return s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		if err := inv.requireAdmin(); err != nil {
			return err
		}
		return inv.repos.Bot.Add(inv.ctx, bots)
	})
}

func (s *AdminService) RemoveBots(ctx context.Context, caller string, bots []string) error {
	return s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		if err := inv.requireAdmin(); err != nil {
			return err
		}
		return inv.repos.Bot.Remove(inv.ctx, bots)
	})
}

// AddCardContract registers a new card contract version. Adding a known
// address changes nothing.
func (s *AdminService) AddCardContract(ctx context.Context, caller string, contract domain.CardContract) error {
	return s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		if err := inv.requireAdmin(); err != nil {
			return err
		}
		state := inv.state
		if _, ok := state.CardVersion(contract.Address); ok {
			return nil
		}
		if len(state.CardVersions) > 255 {
			return fmt.Errorf("too many card contract versions")
		}
		effects, err := contractSetup(s.cfg.InstanceID, contract, state.SharedSecret)
		if err != nil {
			return err
		}
		state.CardVersions = append(state.CardVersions, contract)
		inv.enqueue(effects...)
		return nil
	})
}

func (s *AdminService) ChangeAdmin(ctx context.Context, caller, newAdmin string) error {
	return s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		if err := inv.requireAdmin(); err != nil {
			return err
		}
		if newAdmin == "" {
			return fmt.Errorf("new admin id is required")
		}
		inv.state.Admin = newAdmin
		return nil
	})
}

// ResetTournament starts a new tournament now.
func (s *AdminService) ResetTournament(ctx context.Context, caller string) error {
	return s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		if err := inv.requireAdmin(); err != nil {
			return err
		}
		resetTournament(inv)
		return nil
	})
}

// ScheduledTournamentReset is the tournament reset run by the scheduler.
func (s *AdminService) ScheduledTournamentReset(ctx context.Context) error {
	return s.engine.Mutate(ctx, SystemCaller, func(inv *invocation) error {
		resetTournament(inv)
		return nil
	})
}

func resetTournament(inv *invocation) {
	inv.state.TourneyStart = inv.now.Unix()
	inv.state.TourneyBoard = nil
	inv.emit(EventTournamentReset, TournamentResetEvent{TournamentStarted: inv.state.TourneyStart})
}

// DumpStats lists the all-time stats of players by registry index, from
// start up to limit players.
func (s *AdminService) DumpStats(ctx context.Context, caller string, start, limit uint32) ([]PlayerDump, error) {
	if limit == 0 {
		limit = DefaultDumpLimit
	}

	var dump []PlayerDump
	err := s.engine.Read(ctx, func(repos *repository.Repositories, state *domain.ArenaState) error {
		if !state.IsAdmin(caller) {
			return domain.ErrNotAdmin
		}

		end := uint64(start) + uint64(limit)
		if end > uint64(state.PlayerCount) {
			end = uint64(state.PlayerCount)
		}

		var (
			ids      []string
			page     []string
			pageIdx  = ^uint32(0)
			firstIdx = start
		)
		for i := uint64(start); i < end; i++ {
			idx := uint32(i)
			if idx/domain.PageSize != pageIdx {
				pageIdx = idx / domain.PageSize
				var err error
				page, err = repos.Player.Page(ctx, pageIdx)
				if err != nil {
					return err
				}
			}
			pos := int(idx % domain.PageSize)
			if pos >= len(page) {
				return &domain.Error{Kind: domain.KindDataCorruption,
					Msg: fmt.Sprintf("player registry page %d is missing index %d", pageIdx, idx)}
			}
			ids = append(ids, page[pos])
		}

		counters, err := repos.Stats.AllTimeFor(ctx, ids)
		if err != nil {
			return err
		}
		dump = make([]PlayerDump, 0, len(ids))
		for i, id := range ids {
			dump = append(dump, PlayerDump{
				Index: firstIdx + uint32(i),
				Stats: domain.StatsEntry{PlayerID: id, Counters: counters[id]},
			})
		}
		return nil
	})
	return dump, err
}

// DumpBattles lists full battle records from battle number start.
func (s *AdminService) DumpBattles(ctx context.Context, caller string, start uint64, limit uint32) ([]BattleDump, error) {
	if limit == 0 {
		limit = DefaultDumpLimit
	}

	var dump []BattleDump
	err := s.engine.Read(ctx, func(repos *repository.Repositories, state *domain.ArenaState) error {
		if !state.IsAdmin(caller) {
			return domain.ErrNotAdmin
		}

		end := start + uint64(limit)
		if end > state.BattleCount {
			end = state.BattleCount
		}
		if start >= end {
			dump = []BattleDump{}
			return nil
		}

		battles, err := repos.Battle.Range(ctx, start, end)
		if err != nil {
			return err
		}
		dump = make([]BattleDump, 0, len(battles))
		for _, b := range battles {
			d := BattleDump{
				BattleNumber:      b.BattleNumber,
				Timestamp:         b.Timestamp,
				SkillUsed:         b.SkillUsed,
				Winner:            b.Winner,
				WinningSkillValue: b.WinningSkillValue,
			}
			for _, h := range b.Heroes {
				var address string
				if int(h.TokenInfo.Version) < len(state.CardVersions) {
					address = state.CardVersions[h.TokenInfo.Version].Address
				}
				d.Heroes = append(d.Heroes, DumpHero{
					Owner:            h.Owner,
					Name:             h.Name,
					TokenID:          h.TokenInfo.TokenID,
					Address:          address,
					PreBattleSkills:  h.PreBattleSkills,
					PostBattleSkills: h.PostBattleSkills,
				})
			}
			dump = append(dump, d)
		}
		return nil
	})
	return dump, err
}

// IssueServiceToken mints a token that lets a card contract or a peer
// arena call in as subject.
func (s *AdminService) IssueServiceToken(ctx context.Context, caller, subject string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	err := s.engine.Read(ctx, func(_ *repository.Repositories, state *domain.ArenaState) error {
		if !state.IsAdmin(caller) {
			return domain.ErrNotAdmin
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return s.auth.IssueServiceToken(subject)
}
