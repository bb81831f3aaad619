package ticket

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims is the signed content of a room-entry ticket. A ticket admits one
// user to one room; the roster lets the room know who else to expect.
type Claims struct {
	RoomID       string   `json:"room_id"`
	GameType     string   `json:"game_type"`
	UserID       string   `json:"user_id,omitempty"`
	Users        []string `json:"users,omitempty"`
	TournamentID string   `json:"tournament_id,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies room tickets with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// IssueFor signs a ticket admitting one user to a room.
func (i *Issuer) IssueFor(roomID, gameType, userID string, users []string, tournamentID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RoomID:       roomID,
		GameType:     gameType,
		UserID:       userID,
		Users:        users,
		TournamentID: tournamentID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Issue signs a roster-wide ticket with no user binding, used for tournament
// follow-up matches where the same link goes to every survivor.
func (i *Issuer) Issue(roomID, gameType string, users []string, tournamentID string) (string, error) {
	return i.IssueFor(roomID, gameType, "", users, tournamentID)
}

// Verify parses and validates a ticket, rejecting expired or tampered tokens
// and any signing method other than HMAC.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid ticket: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid ticket")
	}
	if claims.RoomID == "" {
		return nil, fmt.Errorf("ticket missing room id")
	}
	return claims, nil
}
