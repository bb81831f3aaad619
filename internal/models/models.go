package models

import "time"

// Player is a persisted player row.
type Player struct {
	ID          int       `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	DisplayName string    `db:"display_name" json:"display_name"`
	GamesPlayed int       `db:"games_played" json:"games_played"`
	GamesWon    int       `db:"games_won" json:"games_won"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PlayerRef is the resolved identity used when recording results and
// announcing winners.
type PlayerRef struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
}

// MatchRecord is one completed match.
type MatchRecord struct {
	ID       int       `db:"id" json:"id"`
	Player1  string    `db:"player1" json:"player1"`
	Player2  string    `db:"player2" json:"player2"`
	Score1   int       `db:"score1" json:"score1"`
	Score2   int       `db:"score2" json:"score2"`
	PlayedAt time.Time `db:"played_at" json:"played_at"`
}
