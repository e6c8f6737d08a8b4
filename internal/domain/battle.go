package domain

import (
	"time"

	"gorm.io/datatypes"
)

// BattleHero is a participant snapshot stored with a battle.
type BattleHero struct {
	Owner            string    `json:"owner"`
	Name             string    `json:"name"`
	TokenInfo        TokenInfo `json:"tokenInfo"`
	PreBattleSkills  Skills    `json:"preBattleSkills"`
	PostBattleSkills Skills    `json:"postBattleSkills"`
}

// Battle is an immutable record of one resolved battle.
type Battle struct {
	BattleNumber      uint64                          `json:"battleNumber" gorm:"primaryKey;autoIncrement:false"`
	Timestamp         int64                           `json:"timestamp" gorm:"not null"`
	Heroes            datatypes.JSONSlice[BattleHero] `json:"heroes" gorm:"type:jsonb;not null"`
	SkillUsed         uint8                           `json:"skillUsed" gorm:"not null"`
	Winner            *uint8                          `json:"winner"`
	WinningSkillValue uint8                           `json:"winningSkillValue" gorm:"not null"`
	CreatedAt         time.Time                       `json:"-"`
}

// TableName returns the table name for GORM
func (Battle) TableName() string {
	return "battles"
}

// BattleParticipation indexes battles by participant for history paging.
type BattleParticipation struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	PlayerID     string `gorm:"type:varchar(128);not null;index:idx_participation_player"`
	BattleNumber uint64 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BattleParticipation) TableName() string {
	return "battle_participations"
}

// BattleView is a battle as seen by one of its participants.
type BattleView struct {
	BattleNumber      uint64 `json:"battleNumber"`
	Timestamp         int64  `json:"timestamp"`
	MyHero            string `json:"myHero"`
	MyTokenID         string `json:"myTokenId"`
	MySkills          Skills `json:"mySkills"`
	MyPostSkills      Skills `json:"myPostSkills"`
	SkillUsed         uint8  `json:"skillUsed"`
	WinningSkillValue uint8  `json:"winningSkillValue"`
	IWon              bool   `json:"iWon"`
}

// ViewFor builds the view of player. A battle that does not contain the
// player means the history index is corrupted.
func (b *Battle) ViewFor(player string) (*BattleView, error) {
	for i, h := range b.Heroes {
		if h.Owner != player {
			continue
		}
		return &BattleView{
			BattleNumber:      b.BattleNumber,
			Timestamp:         b.Timestamp,
			MyHero:            h.Name,
			MyTokenID:         h.TokenInfo.TokenID,
			MySkills:          h.PreBattleSkills,
			MyPostSkills:      h.PostBattleSkills,
			SkillUsed:         b.SkillUsed,
			WinningSkillValue: b.WinningSkillValue,
			IWon:              b.Winner != nil && int(*b.Winner) == i,
		}, nil
	}
	return nil, ErrHistoryCorrupted
}
