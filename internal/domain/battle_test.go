package domain_test

import (
	"errors"
	"testing"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func decidedBattle() *domain.Battle {
	winner := uint8(2)
	hero := func(owner string, pre, post domain.Skills) domain.BattleHero {
		return domain.BattleHero{
			Owner:            owner,
			Name:             "Hero of " + owner,
			TokenInfo:        domain.TokenInfo{TokenID: owner + "-1"},
			PreBattleSkills:  pre,
			PostBattleSkills: post,
		}
	}
	return &domain.Battle{
		BattleNumber: 7,
		Timestamp:    1700000000,
		Heroes: datatypes.JSONSlice[domain.BattleHero]{
			hero("alice", domain.Skills{50, 50, 50, 50}, domain.Skills{50, 50, 50, 50}),
			hero("bob", domain.Skills{80, 10, 10, 10}, domain.Skills{80, 10, 10, 10}),
			hero("carol", domain.Skills{10, 80, 10, 10}, domain.Skills{13, 83, 12, 14}),
		},
		SkillUsed:         1,
		Winner:            &winner,
		WinningSkillValue: 80,
	}
}

func TestBattle_ViewFor(t *testing.T) {
	b := decidedBattle()

	tests := []struct {
		name    string
		player  string
		wantWon bool
	}{
		{name: "winner", player: "carol", wantWon: true},
		{name: "loser", player: "alice"},
		{name: "other loser", player: "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := b.ViewFor(tt.player)
			require.NoError(t, err)
			assert.Equal(t, uint64(7), view.BattleNumber)
			assert.Equal(t, tt.player+"-1", view.MyTokenID)
			assert.Equal(t, uint8(1), view.SkillUsed)
			assert.Equal(t, uint8(80), view.WinningSkillValue)
			assert.Equal(t, tt.wantWon, view.IWon)
		})
	}
}

func TestBattle_ViewFor_NotAParticipant(t *testing.T) {
	view, err := decidedBattle().ViewFor("zed")

	assert.Nil(t, view)
	assert.True(t, errors.Is(err, domain.ErrDataCorruption))
	assert.ErrorIs(t, err, domain.ErrHistoryCorrupted)
	assert.Equal(t, domain.KindDataCorruption, domain.KindOf(err))
}

func TestBattle_ViewFor_TieHasNoWinner(t *testing.T) {
	b := decidedBattle()
	b.Winner = nil

	for _, player := range []string{"alice", "bob", "carol"} {
		view, err := b.ViewFor(player)
		require.NoError(t, err)
		assert.False(t, view.IWon, player)
	}
}
