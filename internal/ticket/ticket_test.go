package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	signed, err := issuer.IssueFor("room_ab12", "PVP", "p1", []string{"p1", "p2"}, "")
	require.NoError(t, err)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "room_ab12", claims.RoomID)
	assert.Equal(t, "PVP", claims.GameType)
	assert.Equal(t, "p1", claims.UserID)
	assert.Equal(t, []string{"p1", "p2"}, claims.Users)
	assert.Empty(t, claims.TournamentID)
}

func TestRosterTicketCarriesNoBearer(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	signed, err := issuer.Issue("room_ab12", "TOURNAMENT", []string{"A", "D"}, "trn_1")
	require.NoError(t, err)

	claims, err := issuer.Verify(signed)
	require.NoError(t, err)
	assert.Empty(t, claims.UserID)
	assert.Equal(t, "trn_1", claims.TournamentID)
}

func TestExpiredTicketRejected(t *testing.T) {
	issuer := NewIssuer("secret", -time.Minute)

	signed, err := issuer.IssueFor("room_ab12", "PVP", "p1", nil, "")
	require.NoError(t, err)

	_, err = issuer.Verify(signed)
	assert.Error(t, err)
}

func TestWrongSecretRejected(t *testing.T) {
	signed, err := NewIssuer("secret", time.Hour).IssueFor("room_ab12", "PVP", "p1", nil, "")
	require.NoError(t, err)

	_, err = NewIssuer("other", time.Hour).Verify(signed)
	assert.Error(t, err)
}

func TestMalformedTicketRejected(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	_, err := issuer.Verify("not-a-jwt")
	assert.Error(t, err)

	_, err = issuer.Verify("")
	assert.Error(t, err)
}
