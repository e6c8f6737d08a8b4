package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PlayerPage is one fixed-size page of the player registry.
type PlayerPage struct {
	PageIndex uint32                      `json:"pageIndex" gorm:"primaryKey;autoIncrement:false"`
	Players   datatypes.JSONSlice[string] `json:"players" gorm:"type:jsonb;not null"`
	UpdatedAt time.Time                   `json:"-"`
}

// TableName returns the table name for GORM
func (PlayerPage) TableName() string {
	return "player_pages"
}

// SeenPlayer marks a player id that is already in the registry.
type SeenPlayer struct {
	PlayerID  string    `gorm:"primaryKey;type:varchar(128)"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (SeenPlayer) TableName() string {
	return "seen_players"
}

// FillerBot is an automated participant whose battles are not scored.
type FillerBot struct {
	PlayerID  string    `json:"playerId" gorm:"primaryKey;type:varchar(128)"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName returns the table name for GORM
func (FillerBot) TableName() string {
	return "filler_bots"
}

// ImportedBatch records an import batch that has already been applied.
type ImportedBatch struct {
	BatchID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	SourceID    string    `gorm:"type:varchar(128);not null"`
	Players     int       `gorm:"not null"`
	BattleCount *uint64
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (ImportedBatch) TableName() string {
	return "imported_batches"
}

// ImportBatch is one page of exported player stats.
type ImportBatch struct {
	BatchID     uuid.UUID    `json:"batchId"`
	Stats       []StatsEntry `json:"stats"`
	BattleCount *uint64      `json:"battleCount,omitempty"`
}
