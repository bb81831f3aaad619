package store

import (
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/pongarena/backend/internal/models"
)

// MatchStore persists players and finished matches. A nil db is allowed:
// every method degrades to a no-op so the server runs without Postgres.
type MatchStore struct {
	db *sqlx.DB
}

func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

// RecordMatchResult writes one finished match and bumps both players' stats.
func (s *MatchStore) RecordMatchResult(player1, player2 string, score1, score2 int) (*models.MatchRecord, error) {
	if s.db == nil {
		return nil, nil
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	record := &models.MatchRecord{}
	err = tx.QueryRowx(`
		INSERT INTO matches (player1, player2, score1, score2, played_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, player1, player2, score1, score2, played_at
	`, player1, player2, score1, score2).StructScan(record)
	if err != nil {
		return nil, err
	}

	winner := player1
	if score2 > score1 {
		winner = player2
	}
	for _, name := range []string{player1, player2} {
		won := 0
		if name == winner {
			won = 1
		}
		_, err = tx.Exec(`
			INSERT INTO players (username, display_name, games_played, games_won, created_at)
			VALUES ($1, $1, 1, $2, NOW())
			ON CONFLICT (username) DO UPDATE
			SET games_played = players.games_played + 1,
			    games_won = players.games_won + $2
		`, name, won)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	log.Printf("[DB] Recorded match %d: %s %d - %d %s", record.ID, player1, score1, score2, player2)
	return record, nil
}

// ResolvePlayer looks up a player's display identity; unknown players fall
// back to their raw identifier.
func (s *MatchStore) ResolvePlayer(identifier string) (*models.PlayerRef, error) {
	ref := &models.PlayerRef{Identifier: identifier, DisplayName: identifier}
	if s.db == nil || identifier == "" {
		return ref, nil
	}

	var name string
	err := s.db.Get(&name, `SELECT display_name FROM players WHERE username = $1`, identifier)
	if err != nil {
		return ref, nil
	}
	if name != "" {
		ref.DisplayName = name
	}
	return ref, nil
}

// RecentMatches returns the latest finished matches, newest first.
func (s *MatchStore) RecentMatches(limit int) ([]models.MatchRecord, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var matches []models.MatchRecord
	err := s.db.Select(&matches, `
		SELECT id, player1, player2, score1, score2, played_at
		FROM matches
		ORDER BY played_at DESC
		LIMIT $1
	`, limit)
	return matches, err
}

// PlayerStats returns one player's aggregate record.
func (s *MatchStore) PlayerStats(username string) (*models.Player, error) {
	if s.db == nil {
		return nil, nil
	}
	player := &models.Player{}
	err := s.db.Get(player, `
		SELECT id, username, display_name, games_played, games_won, created_at
		FROM players WHERE username = $1
	`, username)
	if err != nil {
		return nil, err
	}
	return player, nil
}
