package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// ArenaStateID is the primary key of the singleton arena state row
	ArenaStateID = 1

	// PageSize is the number of player ids kept per registry page
	PageSize = 256

	// LeaderboardMaxLen bounds both leaderboards
	LeaderboardMaxLen = 20

	// LeaderboardView is how many ranks the public views show
	LeaderboardView = 10

	// BullpenSize is the number of heroes that triggers a battle
	BullpenSize = 3
)

// CardContract is one registered version of the external asset registry.
type CardContract struct {
	Address string `json:"address"`
	URL     string `json:"url"`
}

// Rank is a leaderboard entry.
type Rank struct {
	Score    int32  `json:"score"`
	PlayerID string `json:"playerId"`
}

// ArenaState is the process-wide arena aggregate. There is exactly one row;
// every invocation loads it, mutates it and saves it inside one transaction.
type ArenaState struct {
	ID uint `json:"-" gorm:"primaryKey"`

	// Bullpen
	Heroes  datatypes.JSONSlice[WaitingHero] `json:"heroes" gorm:"type:jsonb"`
	Entropy string                           `json:"-" gorm:"type:text;not null;default:''"`

	// Randomness
	PrngSeed []byte `json:"-" gorm:"type:bytea;not null"`
	Height   uint64 `json:"height" gorm:"not null;default:0"`

	// Counters
	BattleCount     uint64 `json:"battleCount" gorm:"not null;default:0"`
	PreviousBattles uint64 `json:"previousBattles" gorm:"not null;default:0"`
	PlayerCount     uint32 `json:"playerCount" gorm:"not null;default:0"`

	// Administration
	Admin        string                            `json:"admin" gorm:"not null"`
	SharedSecret string                            `json:"-" gorm:"not null"`
	CardVersions datatypes.JSONSlice[CardContract] `json:"cardVersions" gorm:"type:jsonb"`
	FightHalt    bool                              `json:"fightHalt" gorm:"not null;default:false"`

	// Leaderboards
	TourneyStart int64                    `json:"tourneyStart" gorm:"not null"`
	AllTimeBoard datatypes.JSONSlice[Rank] `json:"allTime" gorm:"type:jsonb"`
	TourneyBoard datatypes.JSONSlice[Rank] `json:"tourney" gorm:"type:jsonb"`

	// Migration. ExportTargetToken is the service token the target issued
	// to this arena.
	ExportTargetID    *string `json:"exportTargetId"`
	ExportTargetURL   string  `json:"exportTargetUrl" gorm:"not null;default:''"`
	ExportTargetToken string  `json:"-" gorm:"not null;default:''"`
	ExportNext        uint32  `json:"exportNext" gorm:"not null;default:0"`
	ImportFrom        *string `json:"importFrom"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for GORM
func (ArenaState) TableName() string {
	return "arena_state"
}

// FindHero returns the bullpen position of owner's hero, or -1.
func (a *ArenaState) FindHero(owner string) int {
	for i, h := range a.Heroes {
		if h.Owner == owner {
			return i
		}
	}
	return -1
}

// CardVersion returns the index of a registered card contract address.
func (a *ArenaState) CardVersion(address string) (int, bool) {
	for i, v := range a.CardVersions {
		if v.Address == address {
			return i, true
		}
	}
	return 0, false
}

// LastPage is the index of the last registry page.
func (a *ArenaState) LastPage() uint32 {
	if a.PlayerCount == 0 {
		return 0
	}
	return (a.PlayerCount - 1) / PageSize
}

// IsAdmin reports whether caller administers the arena.
func (a *ArenaState) IsAdmin(caller string) bool {
	return caller != "" && caller == a.Admin
}
