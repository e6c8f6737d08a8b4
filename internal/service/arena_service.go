package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"time"

	"github.com/dom/hero-arena/internal/assetregistry"
	"github.com/dom/hero-arena/internal/battle"
	"github.com/dom/hero-arena/internal/config"
	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/leaderboard"
	"github.com/dom/hero-arena/internal/repository"
	"github.com/dom/hero-arena/internal/rng"
	"github.com/dom/hero-arena/internal/stats"
)

const (
	DefaultHistoryPageSize = 30
	MaxHistoryPageSize     = 100
)

type ArenaService struct {
	engine   *Engine
	registry assetregistry.Querier
	auth     *AuthService
	cfg      *config.Config
}

func NewArenaService(engine *Engine, registry assetregistry.Querier, auth *AuthService, cfg *config.Config) *ArenaService {
	return &ArenaService{
		engine:   engine,
		auth:     auth,
		registry: registry,
		cfg:      cfg,
	}
}

// Genesis creates the arena on first start: the seed comes from the
// configured entropy and the first card contract is registered.
func (s *ArenaService) Genesis(ctx context.Context) (bool, error) {
	return s.engine.Genesis(ctx, func(now time.Time) (*domain.ArenaState, []*domain.OutboxEffect, error) {
		if s.cfg.AdminID == "" {
			return nil, nil, fmt.Errorf("ARENA_ADMIN_ID is required to create the arena")
		}
		if s.cfg.CardContractAddress == "" {
			return nil, nil, fmt.Errorf("CARD_CONTRACT_ADDRESS is required to create the arena")
		}

		seed := rng.GenesisSeed(s.cfg.Entropy)
		contract := domain.CardContract{Address: s.cfg.CardContractAddress, URL: s.cfg.CardContractURL}
		state := &domain.ArenaState{
			PrngSeed:     seed,
			SharedSecret: base64.StdEncoding.EncodeToString(seed),
			Admin:        s.cfg.AdminID,
			CardVersions: []domain.CardContract{contract},
			TourneyStart: now.Unix(),
		}
		effects, err := contractSetup(s.cfg.InstanceID, contract, state.SharedSecret)
		if err != nil {
			return nil, nil, err
		}
		return state, effects, nil
	})
}

// contractSetup registers the arena as receiver with a card contract and
// hands it the viewing key.
func contractSetup(instanceID string, contract domain.CardContract, key string) ([]*domain.OutboxEffect, error) {
	register, err := assetregistry.NewEffect(domain.EffectRegisterReceiver, contract,
		assetregistry.RegisterReceiver{Receiver: instanceID})
	if err != nil {
		return nil, err
	}
	viewingKey, err := assetregistry.NewEffect(domain.EffectSetViewingKey, contract,
		assetregistry.SetViewingKey{Key: key})
	if err != nil {
		return nil, err
	}
	return []*domain.OutboxEffect{register, viewingKey}, nil
}

type ReceiveInput struct {
	From     string
	TokenIDs []string
	Entropy  string
}

type ReceiveResult struct {
	HeroesWaiting int
	Battle        *domain.Battle
}

// Receive admits a hero sent by a card contract. The caller is the card
// contract; input.From is the hero's owner. The third hero starts a battle.
func (s *ArenaService) Receive(ctx context.Context, caller string, input ReceiveInput) (*ReceiveResult, error) {
	result := &ReceiveResult{}
	err := s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		state := inv.state
		if len(input.TokenIDs) != 1 {
			return domain.ErrOneHeroOnly
		}
		if state.FightHalt {
			return domain.ErrBattlesHalted
		}
		version, ok := state.CardVersion(caller)
		if !ok {
			return domain.ErrUnknownCardContract
		}
		if state.FindHero(input.From) >= 0 {
			return domain.ErrAlreadyInBullpen
		}
		if input.Entropy == "" {
			return domain.ErrMissingEntropy
		}

		if err := registerPlayers(inv, []string{input.From}); err != nil {
			return err
		}
		state.Entropy += input.Entropy

		contract := state.CardVersions[version]
		meta, err := s.registry.PrivateMetadata(inv.ctx, contract, input.TokenIDs[0], s.cfg.InstanceID, state.SharedSecret)
		if err != nil {
			return err
		}
		heroStats, err := assetregistry.DecodeStats(meta)
		if err != nil {
			return err
		}
		state.Heroes = append(state.Heroes, domain.WaitingHero{
			Owner: input.From,
			Name:  meta.HeroName(),
			TokenInfo: domain.TokenInfo{
				TokenID: input.TokenIDs[0],
				Version: uint8(version),
			},
			Stats: heroStats,
		})

		if len(state.Heroes) == domain.BullpenSize {
			b, err := s.fight(inv)
			if err != nil {
				return err
			}
			result.Battle = b
		} else {
			grant, err := assetregistry.NewEffect(domain.EffectApprovalGrant, contract,
				assetregistry.ApprovalGrant{Owner: input.From, TokenID: input.TokenIDs[0]})
			if err != nil {
				return err
			}
			inv.enqueue(grant)
		}

		result.HeroesWaiting = len(state.Heroes)
		inv.emit(EventBullpenUpdated, BullpenEvent{HeroesWaiting: len(state.Heroes)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// fight resolves a full bullpen, updates stats and leaderboards, writes the
// battle record and schedules the heroes' metadata updates and return.
func (s *ArenaService) fight(inv *invocation) (*domain.Battle, error) {
	state := inv.state
	var heroes [domain.BullpenSize]domain.HeroStats
	owners := make([]string, 0, domain.BullpenSize)
	for i, h := range state.Heroes {
		heroes[i] = h.Stats
		owners = append(owners, h.Owner)
	}

	stream := rng.NewStream(state.PrngSeed, inv.env, state.Entropy)
	res := battle.Resolve(heroes, stream)
	seed := stream.Block()
	state.PrngSeed = seed[:]
	state.Entropy = ""

	bots, err := inv.repos.Bot.Contains(inv.ctx, owners)
	if err != nil {
		return nil, fmt.Errorf("load filler bots: %w", err)
	}

	ledger := stats.NewLedger(inv.repos.Stats)
	record := &domain.Battle{
		BattleNumber:      state.BattleCount,
		Timestamp:         inv.now.Unix(),
		SkillUsed:         res.SkillUsed,
		Winner:            res.Winner,
		WinningSkillValue: res.WinningSkillValue,
	}
	for i, h := range state.Heroes {
		r := res.Results[i]
		if !bots[h.Owner] {
			delta := r.Outcome.Delta()
			scores, err := ledger.Apply(inv.ctx, h.Owner, r.Outcome, state.TourneyStart, inv.now.Unix())
			if err != nil {
				return nil, err
			}
			state.AllTimeBoard = leaderboard.Update(state.AllTimeBoard, h.Owner, scores.AllTime, delta, domain.LeaderboardMaxLen)
			state.TourneyBoard = leaderboard.Update(state.TourneyBoard, h.Owner, scores.Tourney, delta, domain.LeaderboardMaxLen)
		}

		if r.Post != r.Pre {
			meta, err := assetregistry.StatsMetadata(h.Name, domain.HeroStats{Base: h.Stats.Base, Current: r.Post})
			if err != nil {
				return nil, err
			}
			update, err := assetregistry.NewEffect(domain.EffectSetSecretMetadata, state.CardVersions[h.TokenInfo.Version],
				assetregistry.SetSecretMetadata{TokenID: h.TokenInfo.TokenID, Metadata: meta})
			if err != nil {
				return nil, err
			}
			inv.enqueue(update)
		}

		record.Heroes = append(record.Heroes, domain.BattleHero{
			Owner:            h.Owner,
			Name:             h.Name,
			TokenInfo:        h.TokenInfo,
			PreBattleSkills:  r.Pre,
			PostBattleSkills: r.Post,
		})
	}

	transfers, err := assetregistry.TransfersByVersion(state.Heroes, state.CardVersions)
	if err != nil {
		return nil, err
	}
	inv.enqueue(transfers...)

	if err := inv.repos.Battle.Create(inv.ctx, record); err != nil {
		return nil, fmt.Errorf("save battle: %w", err)
	}
	state.BattleCount++
	state.Heroes = nil

	inv.emit(EventBattleResolved, newBattleEvent(record))
	return record, nil
}

// registerPlayers appends first-time players to the registry.
func registerPlayers(inv *invocation, playerIDs []string) error {
	var fresh []string
	for _, id := range playerIDs {
		seen, err := inv.repos.Player.IsSeen(inv.ctx, id)
		if err != nil {
			return fmt.Errorf("check player %s: %w", id, err)
		}
		if seen || slices.Contains(fresh, id) {
			continue
		}
		if err := inv.repos.Player.MarkSeen(inv.ctx, id); err != nil {
			return fmt.Errorf("mark player %s: %w", id, err)
		}
		fresh = append(fresh, id)
	}
	count, err := inv.repos.Player.Append(inv.ctx, inv.state.PlayerCount, fresh)
	if err != nil {
		return fmt.Errorf("register players: %w", err)
	}
	inv.state.PlayerCount = count
	return nil
}

// Withdraw takes the caller's waiting hero out of the bullpen and sends it
// back.
func (s *ArenaService) Withdraw(ctx context.Context, caller string) (string, error) {
	var message string
	err := s.engine.Mutate(ctx, caller, func(inv *invocation) error {
		state := inv.state
		pos := state.FindHero(caller)
		if pos < 0 {
			return domain.ErrNotInBullpen
		}
		hero := state.Heroes[pos]
		state.Heroes = slices.Delete(state.Heroes, pos, pos+1)

		transfer, err := assetregistry.NewEffect(domain.EffectTransfer, state.CardVersions[hero.TokenInfo.Version],
			assetregistry.Transfer{Recipient: caller, TokenIDs: []string{hero.TokenInfo.TokenID}})
		if err != nil {
			return err
		}
		inv.enqueue(transfer)
		inv.emit(EventBullpenUpdated, BullpenEvent{HeroesWaiting: len(state.Heroes)})
		message = fmt.Sprintf("%s fled", hero.Name)
		return nil
	})
	return message, err
}

// Bullpen shows how many heroes wait and the caller's own hero, if any.
func (s *ArenaService) Bullpen(ctx context.Context, caller string) (*BullpenView, error) {
	var view *BullpenView
	err := s.engine.Read(ctx, func(_ *repository.Repositories, state *domain.ArenaState) error {
		view = &BullpenView{HeroesWaiting: len(state.Heroes)}
		if pos := state.FindHero(caller); pos >= 0 {
			h := state.Heroes[pos]
			view.YourHero = &WaitingHeroView{
				Name:    h.Name,
				TokenID: h.TokenInfo.TokenID,
				Address: state.CardVersions[h.TokenInfo.Version].Address,
				Stats:   h.Stats,
			}
		}
		return nil
	})
	return view, err
}

// History returns a page of the caller's battles, most recent first.
func (s *ArenaService) History(ctx context.Context, caller string, page, pageSize int) ([]*domain.BattleView, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = DefaultHistoryPageSize
	}
	if pageSize > MaxHistoryPageSize {
		pageSize = MaxHistoryPageSize
	}

	var views []*domain.BattleView
	err := s.engine.Read(ctx, func(repos *repository.Repositories, _ *domain.ArenaState) error {
		battles, err := repos.Battle.History(ctx, caller, page, pageSize)
		if err != nil {
			return err
		}
		views = make([]*domain.BattleView, 0, len(battles))
		for _, b := range battles {
			v, err := b.ViewFor(caller)
			if err != nil {
				return fmt.Errorf("battle %d: %w", b.BattleNumber, err)
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

// Leaderboards returns the top ranks of both leaderboards with full stats.
func (s *ArenaService) Leaderboards(ctx context.Context) (*LeaderboardsView, error) {
	var view *LeaderboardsView
	err := s.engine.Read(ctx, func(repos *repository.Repositories, state *domain.ArenaState) error {
		allTime, err := allTimeEntries(ctx, repos, leaderboard.Top(state.AllTimeBoard, domain.LeaderboardView))
		if err != nil {
			return err
		}
		tourney, err := tourneyEntries(ctx, repos, leaderboard.Top(state.TourneyBoard, domain.LeaderboardView), state.TourneyStart)
		if err != nil {
			return err
		}
		view = &LeaderboardsView{
			TournamentStarted: state.TourneyStart,
			Tournament:        tourney,
			AllTime:           allTime,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view.DisplayNames, err = s.displayNames(ctx, view.AllTime, view.Tournament)
	return view, err
}

// Tournament returns the current tournament's top ranks.
func (s *ArenaService) Tournament(ctx context.Context) (*TournamentView, error) {
	var view *TournamentView
	err := s.engine.Read(ctx, func(repos *repository.Repositories, state *domain.ArenaState) error {
		entries, err := tourneyEntries(ctx, repos, leaderboard.Top(state.TourneyBoard, domain.LeaderboardView), state.TourneyStart)
		if err != nil {
			return err
		}
		view = &TournamentView{TournamentStarted: state.TourneyStart, Leaderboard: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}
	view.DisplayNames, err = s.displayNames(ctx, view.Leaderboard)
	return view, err
}

// displayNames resolves the account names of ranked players outside the
// arena lock; accounts are not arena state.
func (s *ArenaService) displayNames(ctx context.Context, boards ...[]domain.StatsEntry) (map[string]string, error) {
	var ids []string
	for _, board := range boards {
		for _, e := range board {
			ids = append(ids, e.PlayerID)
		}
	}
	return s.auth.DisplayNames(ctx, ids)
}

func allTimeEntries(ctx context.Context, repos *repository.Repositories, ranks []domain.Rank) ([]domain.StatsEntry, error) {
	ids := rankIDs(ranks)
	counters, err := repos.Stats.AllTimeFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.StatsEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, domain.StatsEntry{PlayerID: id, Counters: counters[id]})
	}
	return entries, nil
}

func tourneyEntries(ctx context.Context, repos *repository.Repositories, ranks []domain.Rank, start int64) ([]domain.StatsEntry, error) {
	ids := rankIDs(ranks)
	rows, err := repos.Stats.TourneyFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.StatsEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, domain.StatsEntry{PlayerID: id, Counters: stats.Current(rows[id], start)})
	}
	return entries, nil
}

func rankIDs(ranks []domain.Rank) []string {
	ids := make([]string, 0, len(ranks))
	for _, r := range ranks {
		ids = append(ids, r.PlayerID)
	}
	return ids
}

// PlayerStats returns the caller's all-time and tournament counters.
func (s *ArenaService) PlayerStats(ctx context.Context, caller string) (*PlayerStatsView, error) {
	var view *PlayerStatsView
	err := s.engine.Read(ctx, func(repos *repository.Repositories, state *domain.ArenaState) error {
		allTime, tourney, err := stats.NewLedger(repos.Stats).Lookup(ctx, caller, state.TourneyStart)
		if err != nil {
			return err
		}
		view = &PlayerStatsView{
			Tournament: domain.StatsEntry{PlayerID: caller, Counters: tourney},
			AllTime:    domain.StatsEntry{PlayerID: caller, Counters: allTime},
		}
		return nil
	})
	return view, err
}

func (s *ArenaService) Usage(ctx context.Context) (*UsageView, error) {
	var view *UsageView
	err := s.engine.Read(ctx, func(_ *repository.Repositories, state *domain.ArenaState) error {
		view = &UsageView{
			PlayerCount:          state.PlayerCount,
			ArenaBattleCount:     state.BattleCount,
			PreviousArenaBattles: state.PreviousBattles,
		}
		return nil
	})
	return view, err
}

func (s *ArenaService) Config(ctx context.Context) (*ConfigView, error) {
	var view *ConfigView
	err := s.engine.Read(ctx, func(_ *repository.Repositories, state *domain.ArenaState) error {
		view = &ConfigView{
			CardVersions:      slices.Clone(state.CardVersions),
			BattlesHaveHalted: state.FightHalt,
		}
		return nil
	})
	return view, err
}

func (s *ArenaService) Bots(ctx context.Context) ([]string, error) {
	var bots []string
	err := s.engine.Read(ctx, func(repos *repository.Repositories, _ *domain.ArenaState) error {
		var err error
		bots, err = repos.Bot.List(ctx)
		return err
	})
	return bots, err
}

// Snapshot collects usage and every registered player's all-time stats.
func (s *ArenaService) Snapshot(ctx context.Context) (*SnapshotView, error) {
	var view *SnapshotView
	err := s.engine.Read(ctx, func(repos *repository.Repositories, state *domain.ArenaState) error {
		view = &SnapshotView{
			TakenAt: s.engine.Clock().Now().Unix(),
			Usage: UsageView{
				PlayerCount:          state.PlayerCount,
				ArenaBattleCount:     state.BattleCount,
				PreviousArenaBattles: state.PreviousBattles,
			},
			Players: make([]PlayerDump, 0, state.PlayerCount),
		}
		if state.PlayerCount == 0 {
			return nil
		}
		for page := uint32(0); page <= state.LastPage(); page++ {
			ids, err := repos.Player.Page(ctx, page)
			if err != nil {
				return err
			}
			counters, err := repos.Stats.AllTimeFor(ctx, ids)
			if err != nil {
				return err
			}
			for i, id := range ids {
				view.Players = append(view.Players, PlayerDump{
					Index: page*domain.PageSize + uint32(i),
					Stats: domain.StatsEntry{PlayerID: id, Counters: counters[id]},
				})
			}
		}
		return nil
	})
	return view, err
}
