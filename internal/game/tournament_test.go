package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFourPlayerBracketRunsToCompletion(t *testing.T) {
	tm := NewTournamentManager()
	tm.Create("trn_1", []string{"A", "B", "C", "D"})

	// Draft the opening pairing: the two earliest entrants.
	next, err := tm.AdvanceNextMatch("trn_1", "")
	require.NoError(t, err)
	require.True(t, next.Pairing)
	assert.Equal(t, [2]string{"A", "B"}, next.Players)
	assert.Equal(t, []string{"A", "B"}, tm.CurrentPairing("trn_1"))

	// A beats B; C and D are still waiting, so they pair next.
	next, err = tm.AdvanceNextMatch("trn_1", "B")
	require.NoError(t, err)
	require.True(t, next.Pairing)
	assert.Equal(t, [2]string{"C", "D"}, next.Players)

	// D beats C. The waiting pool is empty with two players standing, so
	// the round resets and the final is drafted in one call.
	next, err = tm.AdvanceNextMatch("trn_1", "C")
	require.NoError(t, err)
	require.True(t, next.Pairing)
	assert.Equal(t, [2]string{"A", "D"}, next.Players)

	// A takes the final.
	next, err = tm.AdvanceNextMatch("trn_1", "D")
	require.NoError(t, err)
	assert.True(t, next.Finished)
	assert.Equal(t, "A", next.Winner)
}

func TestBracketDedupesParticipants(t *testing.T) {
	tm := NewTournamentManager()
	tm.Create("trn_1", []string{"A", "A", "B"})

	next, err := tm.AdvanceNextMatch("trn_1", "")
	require.NoError(t, err)
	require.True(t, next.Pairing)
	assert.Equal(t, [2]string{"A", "B"}, next.Players)

	next, err = tm.AdvanceNextMatch("trn_1", "B")
	require.NoError(t, err)
	assert.True(t, next.Finished)
	assert.Equal(t, "A", next.Winner)
}

func TestEmptyBracketCannotProgress(t *testing.T) {
	tm := NewTournamentManager()
	tm.Create("trn_1", nil)

	_, err := tm.AdvanceNextMatch("trn_1", "")
	assert.ErrorIs(t, err, ErrCannotProgress)
}

func TestUnknownTournamentAndLoser(t *testing.T) {
	tm := NewTournamentManager()
	tm.Create("trn_1", []string{"A", "B"})

	_, err := tm.AdvanceNextMatch("trn_404", "")
	assert.Error(t, err)

	_, err = tm.AdvanceNextMatch("trn_1", "Z")
	assert.Error(t, err)
}

func TestRemoveDropsBracket(t *testing.T) {
	tm := NewTournamentManager()
	tm.Create("trn_1", []string{"A", "B"})
	require.True(t, tm.Exists("trn_1"))

	tm.Remove("trn_1")
	assert.False(t, tm.Exists("trn_1"))
	assert.Nil(t, tm.CurrentPairing("trn_1"))
}
