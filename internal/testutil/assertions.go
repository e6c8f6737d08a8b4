package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	// Error responses are plain text in this API
	assert.Contains(t, string(body), expectedMessage, "error message mismatch")
}

// AssertBoard checks a leaderboard's player order. Players listed in the
// same group may appear in any order within it.
func AssertBoard(t *testing.T, board []domain.StatsEntry, groups ...[]string) {
	t.Helper()

	got := make([]string, 0, len(board))
	for _, e := range board {
		got = append(got, e.PlayerID)
	}

	at := 0
	for _, group := range groups {
		require.LessOrEqual(t, at+len(group), len(got), "board %v is shorter than expected", got)
		assert.ElementsMatch(t, group, got[at:at+len(group)], "board %v", got)
		at += len(group)
	}
	assert.Len(t, got, at, "board %v is longer than expected", got)
}

// AssertCounters checks a player's all-time and tournament counters.
func (a *TestArena) AssertCounters(t *testing.T, playerID string, allTime, tourney domain.Counters) {
	t.Helper()

	stats, err := a.Services.Arena.PlayerStats(t.Context(), playerID)
	require.NoError(t, err)
	assert.Equal(t, allTime, stats.AllTime.Counters, "%s all-time", playerID)
	assert.Equal(t, tourney, stats.Tournament.Counters, "%s tournament", playerID)
}
