package matchmaking

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/game"
)

// ErrUnknownMode rejects queue operations for modes the matchmaker doesn't
// run.
var ErrUnknownMode = errors.New("unknown game mode")

// Notifier delivers match-found messages to queued players. Implemented by
// the websocket hub.
type Notifier interface {
	SendToPlayer(playerID string, message interface{})
}

// TicketSigner signs per-player room-entry tickets.
type TicketSigner interface {
	IssueFor(roomID, gameType, userID string, users []string, tournamentID string) (string, error)
}

// Service drains the queues into matches. Group sizes are fixed per mode:
// PVP seats two, PVC seats one against the computer, tournaments take a
// full bracket.
type Service struct {
	cfg         *config.Config
	pool        Pool
	tournaments *game.TournamentManager
	tickets     TicketSigner
	notifier    Notifier
}

func NewService(cfg *config.Config, pool Pool, tournaments *game.TournamentManager, tickets TicketSigner, notifier Notifier) *Service {
	return &Service{
		cfg:         cfg,
		pool:        pool,
		tournaments: tournaments,
		tickets:     tickets,
		notifier:    notifier,
	}
}

// Modes lists the queues the matchmaker runs.
func (s *Service) Modes() []string {
	return []string{string(game.ModePVP), string(game.ModePVC), string(game.ModeTournament)}
}

// requiredPlayers returns the group size for a mode, or 0 for unknown modes.
func (s *Service) requiredPlayers(mode string) int {
	switch game.Mode(mode) {
	case game.ModePVP:
		return 2
	case game.ModePVC:
		return 1
	case game.ModeTournament:
		return s.cfg.TournamentSize
	default:
		return 0
	}
}

// JoinQueue enqueues a player and immediately tries to form a match, so a
// queue that just became full doesn't wait out a poll interval.
func (s *Service) JoinQueue(mode, playerID string) error {
	if s.requiredPlayers(mode) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if err := s.pool.Add(mode, playerID); err != nil {
		return err
	}
	log.Printf("[MATCHMAKER] %s queued for %s", playerID, mode)
	s.TryMatch(mode)
	return nil
}

// LeaveQueue withdraws a player.
func (s *Service) LeaveQueue(mode, playerID string) error {
	if s.requiredPlayers(mode) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if err := s.pool.Remove(mode, playerID); err != nil {
		return err
	}
	log.Printf("[MATCHMAKER] %s left %s queue", playerID, mode)
	return nil
}

// Position reports a player's 1-based place in a queue, 0 if not queued.
func (s *Service) Position(mode, playerID string) (int, error) {
	if s.requiredPlayers(mode) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return s.pool.Position(mode, playerID)
}

// QueueSizes reports how many players wait in each queue.
func (s *Service) QueueSizes() map[string]int {
	sizes := make(map[string]int)
	for _, mode := range s.Modes() {
		n, err := s.pool.Count(mode)
		if err != nil {
			log.Printf("[MATCHMAKER] Failed to count %s queue: %v", mode, err)
			continue
		}
		sizes[mode] = n
	}
	return sizes
}

// TryMatch forms at most one match from a queue. The pop is atomic, so
// concurrent calls over the same queue can never double-match a player.
// Returns true if a match was formed.
func (s *Service) TryMatch(mode string) bool {
	required := s.requiredPlayers(mode)
	if required == 0 {
		return false
	}

	players, err := s.pool.PopIfReady(mode, required)
	if err != nil {
		log.Printf("[MATCHMAKER] Pop failed for %s: %v", mode, err)
		return false
	}
	if players == nil {
		return false
	}

	roomID := game.GenerateRoomID()
	tournamentID := ""
	if game.Mode(mode) == game.ModeTournament {
		tournamentID = generateTournamentID()
		s.tournaments.Create(tournamentID, players)
		// Draft the opening pairing here, before anyone can join, so room
		// joins only ever read the bracket.
		if _, err := s.tournaments.AdvanceNextMatch(tournamentID, ""); err != nil {
			log.Printf("[MATCHMAKER] Failed to draft opening pairing for %s: %v", tournamentID, err)
		}
	}

	log.Printf("[MATCHMAKER] Matched %v into room %s (%s)", players, roomID, mode)

	for _, playerID := range players {
		ticket, err := s.tickets.IssueFor(roomID, mode, playerID, players, tournamentID)
		if err != nil {
			log.Printf("[MATCHMAKER] Failed to issue ticket for %s: %v", playerID, err)
			continue
		}
		if s.notifier != nil {
			s.notifier.SendToPlayer(playerID, map[string]interface{}{
				"type":      "match_found",
				"game_type": mode,
				"room_id":   roomID,
				"ticket":    ticket,
			})
		}
	}
	return true
}

// PurgeStale drops players who have waited past the queue limit.
func (s *Service) PurgeStale() {
	for _, mode := range s.Modes() {
		n, err := s.pool.PurgeStale(mode, time.Duration(s.cfg.QueueMaxWaitSeconds)*time.Second)
		if err != nil {
			log.Printf("[MATCHMAKER] Purge failed for %s: %v", mode, err)
			continue
		}
		if n > 0 {
			log.Printf("[MATCHMAKER] Purged %d stale entries from %s", n, mode)
		}
	}
}

func generateTournamentID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		log.Printf("[MATCHMAKER] Failed to generate tournament id: %v", err)
	}
	return "trn_" + hex.EncodeToString(b)
}
