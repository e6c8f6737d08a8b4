// Package leaderboard maintains bounded, score-descending rankings that are
// updated in place one player at a time.
package leaderboard

import "github.com/dom/hero-arena/internal/domain"

// Position returns the rank of player on board, or -1 if unranked.
func Position(board []domain.Rank, player string) int {
	for i, r := range board {
		if r.PlayerID == player {
			return i
		}
	}
	return -1
}

// InsertPosition returns the rank score would take on board, which must not
// contain the player. Within a group of equal scores a non-negative delta
// lands at the top of the group and a negative delta at the bottom.
func InsertPosition(board []domain.Rank, score int32, delta int8) int {
	for i, r := range board {
		if r.Score < score || (r.Score == score && delta >= 0) {
			return i
		}
	}
	return len(board)
}

// Update moves player to its new score and returns the new board, at most
// maxLen long. A ranked player with a zero delta stays where it is. An
// unranked player only enters when it would rank inside maxLen.
func Update(board []domain.Rank, player string, score int32, delta int8, maxLen int) []domain.Rank {
	old := Position(board, player)
	if old >= 0 && delta == 0 {
		return truncate(board, maxLen)
	}

	rest := make([]domain.Rank, 0, len(board)+1)
	for i, r := range board {
		if i != old {
			rest = append(rest, r)
		}
	}

	pos := InsertPosition(rest, score, delta)
	if old < 0 && pos >= maxLen {
		return truncate(rest, maxLen)
	}

	rest = append(rest, domain.Rank{})
	copy(rest[pos+1:], rest[pos:])
	rest[pos] = domain.Rank{Score: score, PlayerID: player}
	return truncate(rest, maxLen)
}

// Top returns a copy of the first n ranks.
func Top(board []domain.Rank, n int) []domain.Rank {
	if n > len(board) {
		n = len(board)
	}
	top := make([]domain.Rank, n)
	copy(top, board[:n])
	return top
}

func truncate(board []domain.Rank, maxLen int) []domain.Rank {
	if len(board) > maxLen {
		return board[:maxLen]
	}
	return board
}
