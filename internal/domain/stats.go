package domain

import "time"

// Counters are the aggregate battle counters kept per player.
type Counters struct {
	Score             int32  `json:"score" gorm:"not null;default:0"`
	Battles           uint32 `json:"battles" gorm:"not null;default:0"`
	Wins              uint32 `json:"wins" gorm:"not null;default:0"`
	Ties              uint32 `json:"ties" gorm:"not null;default:0"`
	ThirdInTwoWayTies uint32 `json:"thirdInTwoWayTies" gorm:"not null;default:0"`
	Losses            uint32 `json:"losses" gorm:"not null;default:0"`
}

// Add sums other into c.
func (c *Counters) Add(other Counters) {
	c.Score += other.Score
	c.Battles += other.Battles
	c.Wins += other.Wins
	c.Ties += other.Ties
	c.ThirdInTwoWayTies += other.ThirdInTwoWayTies
	c.Losses += other.Losses
}

// PlayerStats holds a player's all-time counters.
type PlayerStats struct {
	PlayerID  string    `json:"playerId" gorm:"primaryKey;type:varchar(128)"`
	Counters  `gorm:"embedded"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the table name for GORM
func (PlayerStats) TableName() string {
	return "player_stats"
}

// TourneyStats holds a player's counters for the current tournament.
// Rows last seen before the tournament start are stale and read as zero.
type TourneyStats struct {
	PlayerID string `json:"playerId" gorm:"primaryKey;type:varchar(128)"`
	LastSeen int64  `json:"lastSeen" gorm:"not null;default:0"`
	Counters `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (TourneyStats) TableName() string {
	return "tourney_stats"
}

// StatsEntry is a player's counters as exchanged between arenas and shown
// in views.
type StatsEntry struct {
	PlayerID string `json:"playerId"`
	Counters
}
