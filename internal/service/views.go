package service

import "github.com/dom/hero-arena/internal/domain"

type WaitingHeroView struct {
	Name    string           `json:"name"`
	TokenID string           `json:"tokenId"`
	Address string           `json:"address"`
	Stats   domain.HeroStats `json:"stats"`
}

type BullpenView struct {
	HeroesWaiting int              `json:"heroesWaiting"`
	YourHero      *WaitingHeroView `json:"yourHero,omitempty"`
}

// DisplayNames covers the ranked players that have accounts.
type LeaderboardsView struct {
	TournamentStarted int64               `json:"tournamentStarted"`
	Tournament        []domain.StatsEntry `json:"tournament"`
	AllTime           []domain.StatsEntry `json:"allTime"`
	DisplayNames      map[string]string   `json:"displayNames"`
}

type TournamentView struct {
	TournamentStarted int64               `json:"tournamentStarted"`
	Leaderboard       []domain.StatsEntry `json:"leaderboard"`
	DisplayNames      map[string]string   `json:"displayNames"`
}

type PlayerStatsView struct {
	Tournament domain.StatsEntry `json:"tournament"`
	AllTime    domain.StatsEntry `json:"allTime"`
}

type UsageView struct {
	PlayerCount          uint32 `json:"playerCount"`
	ArenaBattleCount     uint64 `json:"arenaBattleCount"`
	PreviousArenaBattles uint64 `json:"previousArenaBattles"`
}

type ConfigView struct {
	CardVersions      []domain.CardContract `json:"cardVersions"`
	BattlesHaveHalted bool                  `json:"battlesHaveHalted"`
}

// ExportStatusView is nil while no export target is set.
type ExportStatusView struct {
	Next uint32 `json:"next"`
	Last uint32 `json:"last"`
}

type PlayerDump struct {
	Index uint32            `json:"index"`
	Stats domain.StatsEntry `json:"stats"`
}

type DumpHero struct {
	Owner            string        `json:"owner"`
	Name             string        `json:"name"`
	TokenID          string        `json:"tokenId"`
	Address          string        `json:"address"`
	PreBattleSkills  domain.Skills `json:"preBattleSkills"`
	PostBattleSkills domain.Skills `json:"postBattleSkills"`
}

type BattleDump struct {
	BattleNumber      uint64     `json:"battleNumber"`
	Timestamp         int64      `json:"timestamp"`
	Heroes            []DumpHero `json:"heroes"`
	SkillUsed         uint8      `json:"skillUsed"`
	Winner            *uint8     `json:"winner"`
	WinningSkillValue uint8      `json:"winningSkillValue"`
}

// Live event payloads

type BullpenEvent struct {
	HeroesWaiting int `json:"heroesWaiting"`
}

type BattleEventHero struct {
	Owner string        `json:"owner"`
	Name  string        `json:"name"`
	Pre   domain.Skills `json:"pre"`
	Post  domain.Skills `json:"post"`
}

type BattleEvent struct {
	BattleNumber      uint64            `json:"battleNumber"`
	SkillUsed         uint8             `json:"skillUsed"`
	Winner            *uint8            `json:"winner"`
	WinningSkillValue uint8             `json:"winningSkillValue"`
	Heroes            []BattleEventHero `json:"heroes"`
}

func newBattleEvent(b *domain.Battle) BattleEvent {
	ev := BattleEvent{
		BattleNumber:      b.BattleNumber,
		SkillUsed:         b.SkillUsed,
		Winner:            b.Winner,
		WinningSkillValue: b.WinningSkillValue,
	}
	for _, h := range b.Heroes {
		ev.Heroes = append(ev.Heroes, BattleEventHero{
			Owner: h.Owner,
			Name:  h.Name,
			Pre:   h.PreBattleSkills,
			Post:  h.PostBattleSkills,
		})
	}
	return ev
}

type BattleStatusEvent struct {
	Halted bool `json:"halted"`
}

type TournamentResetEvent struct {
	TournamentStarted int64 `json:"tournamentStarted"`
}

// SnapshotView is the archived form of the ledger.
type SnapshotView struct {
	TakenAt int64        `json:"takenAt"`
	Usage   UsageView    `json:"usage"`
	Players []PlayerDump `json:"players"`
}
