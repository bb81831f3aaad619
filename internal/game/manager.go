package game

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"

	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/models"
)

// Broadcaster pushes messages out to connected clients. Implemented by the
// websocket hub; tests swap in a recorder.
type Broadcaster interface {
	SendToPlayer(playerID string, message interface{})
	BroadcastToRoom(roomID string, message interface{})
}

// Recorder persists finished matches. A nil-db store degrades to no-ops so
// the game runs without Postgres.
type Recorder interface {
	RecordMatchResult(player1, player2 string, score1, score2 int) (*models.MatchRecord, error)
}

// TicketIssuer signs room-entry tickets for tournament follow-up matches.
type TicketIssuer interface {
	Issue(roomID string, mode string, users []string, tournamentID string) (string, error)
}

// GameManager owns the room registry and everything that happens at room
// granularity: joins, leaves, input, readiness, pause state and round-over
// handling. The loop it starts on demand does the per-tick work.
type GameManager struct {
	cfg         *config.Config
	roomCfg     RoomConfig
	hub         Broadcaster
	store       Recorder
	tournaments *TournamentManager
	tickets     TicketIssuer

	mu       sync.RWMutex
	rooms    map[string]*Room
	loop     *GameLoop
	prevLoop *GameLoop // stopped loop still draining its last tick
}

func NewGameManager(cfg *config.Config, hub Broadcaster, store Recorder, tournaments *TournamentManager, tickets TicketIssuer) *GameManager {
	return &GameManager{
		cfg:         cfg,
		roomCfg:     RoomConfigFrom(cfg),
		hub:         hub,
		store:       store,
		tournaments: tournaments,
		tickets:     tickets,
		rooms:       make(map[string]*Room),
	}
}

// GenerateRoomID returns a fresh room identifier.
func GenerateRoomID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		log.Printf("[GAME] Failed to generate room id: %v", err)
	}
	return "room_" + hex.EncodeToString(b)
}

// CreateOrGetRoom returns the room for an id, creating it on first join.
// Creation is idempotent under concurrent joins: exactly one room per id.
func (gm *GameManager) CreateOrGetRoom(roomID string, mode Mode, tournamentID string) *Room {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if room, ok := gm.rooms[roomID]; ok {
		return room
	}

	room := NewRoom(roomID, mode, gm.roomCfg)
	room.TournamentID = tournamentID
	gm.rooms[roomID] = room
	log.Printf("[GAME] Created room %s (%s)", roomID, mode)

	if gm.loop == nil {
		gm.loop = newGameLoop(gm)
		// A stopped predecessor may still be mid-iteration; running two
		// loops at once would double-advance this room for a tick.
		prev := gm.prevLoop
		gm.prevLoop = nil
		go func(next, prev *GameLoop) {
			if prev != nil {
				<-prev.Done()
			}
			next.Run()
		}(gm.loop, prev)
	}
	return room
}

// Room returns a live room or nil.
func (gm *GameManager) Room(roomID string) *Room {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.rooms[roomID]
}

// RoomCount reports the number of live rooms.
func (gm *GameManager) RoomCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.rooms)
}

// liveRooms snapshots the registry for the loop. Per-room work then takes
// each room's own lock, never the registry lock.
func (gm *GameManager) liveRooms() []*Room {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	rooms := make([]*Room, 0, len(gm.rooms))
	for _, room := range gm.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// AddPlayer seats a joiner or registers them as a spectator. In tournament
// rooms the bracket decides who sits: only the current pairing gets paddles,
// everyone else watches until their match comes up. Joins never mutate the
// bracket; pairings are drafted at creation and on round-over only.
func (gm *GameManager) AddPlayer(room *Room, playerID string) Side {
	seated := ""
	if room.Mode == ModeTournament {
		pairing := gm.tournaments.CurrentPairing(room.TournamentID)
		for i, p := range pairing {
			if p != playerID {
				continue
			}
			switch i {
			case 0:
				seated = string(SideLeft)
			case 1:
				seated = string(SideRight)
			}
		}
	}

	room.Lock()
	defer room.Unlock()

	if slot, ok := room.Players[playerID]; ok {
		return slot.Side
	}

	var side Side
	switch {
	case room.Mode == ModeTournament:
		if seated == "" {
			room.Spectators[playerID] = &Spectator{}
			log.Printf("[GAME] %s spectating room %s", playerID, room.ID)
			return ""
		}
		side = Side(seated)
	case !room.sideTaken(SideLeft):
		side = SideLeft
	case room.Mode != ModePVC && !room.sideTaken(SideRight):
		side = SideRight
	default:
		room.Spectators[playerID] = &Spectator{}
		log.Printf("[GAME] %s spectating room %s (full)", playerID, room.ID)
		return ""
	}

	room.Players[playerID] = &PlayerSlot{Side: side, Alias: playerID}
	log.Printf("[GAME] %s joined room %s as %s", playerID, room.ID, side)
	return side
}

// RemovePlayer drops a participant. The room is destroyed once the last
// player leaves; the loop stops with the last room.
func (gm *GameManager) RemovePlayer(room *Room, playerID string) {
	room.Lock()
	delete(room.Players, playerID)
	delete(room.Spectators, playerID)
	empty := len(room.Players) == 0
	if !empty && room.Started && !room.finished {
		// Opponent left mid-match; freeze until a rejoin or disconnect.
		room.Paused = true
	}
	room.Unlock()

	log.Printf("[GAME] %s left room %s", playerID, room.ID)
	if empty {
		gm.retireRoom(room.ID)
	}
}

func (gm *GameManager) retireRoom(roomID string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if _, ok := gm.rooms[roomID]; !ok {
		return
	}
	delete(gm.rooms, roomID)
	log.Printf("[GAME] Retired room %s", roomID)

	if len(gm.rooms) == 0 && gm.loop != nil {
		gm.loop.Stop()
		gm.prevLoop = gm.loop
		gm.loop = nil
	}
}

// SetPlayerInput replaces a seated player's held-key state. Input from
// spectators is ignored.
func (gm *GameManager) SetPlayerInput(room *Room, playerID string, input InputState) {
	room.Lock()
	defer room.Unlock()
	if slot, ok := room.Players[playerID]; ok {
		slot.Input = input
	}
}

// SetReady marks a participant ready and starts the match once everyone who
// must confirm has done so.
func (gm *GameManager) SetReady(room *Room, playerID string) {
	room.Lock()
	if slot, ok := room.Players[playerID]; ok {
		slot.Ready = true
	} else if watcher, ok := room.Spectators[playerID]; ok {
		watcher.Ready = true
	}
	start := !room.Started && room.requiredReady()
	if start {
		room.Started = true
	}
	room.Unlock()

	if start {
		log.Printf("[GAME] Room %s started", room.ID)
	}
}

// SetPaused freezes the simulation; scheduled events hold their fire too.
func (gm *GameManager) SetPaused(room *Room) {
	room.Lock()
	room.Paused = true
	room.Unlock()
}

// SetResumed lifts a pause.
func (gm *GameManager) SetResumed(room *Room) {
	room.Lock()
	room.Paused = false
	room.Unlock()
}

// SetPlayerAlias updates the display name a player carries into results.
func (gm *GameManager) SetPlayerAlias(room *Room, playerID, alias string) {
	room.Lock()
	defer room.Unlock()
	if slot, ok := room.Players[playerID]; ok && alias != "" {
		slot.Alias = alias
	}
}

// reportRoundOver runs once per finished round, from the loop goroutine.
// The caller already flagged the room finished under its lock.
func (gm *GameManager) reportRoundOver(room *Room) {
	room.Lock()
	leftScore := room.Left.Score
	rightScore := room.Right.Score
	leftID := room.PlayerBySide(SideLeft)
	rightID := room.PlayerBySide(SideRight)
	leftAlias, rightAlias := leftID, rightID
	if slot, ok := room.Players[leftID]; ok {
		leftAlias = slot.Alias
	}
	if slot, ok := room.Players[rightID]; ok {
		rightAlias = slot.Alias
	}
	room.Unlock()

	winnerID, winnerAlias := leftID, leftAlias
	loserID := rightID
	if rightScore > leftScore {
		winnerID, winnerAlias = rightID, rightAlias
		loserID = leftID
	}

	gm.recordResult(room, leftAlias, rightAlias, leftScore, rightScore)

	switch room.Mode {
	case ModePVC:
		winner := winnerAlias
		if winnerID == "" {
			winner = "Computer"
		}
		gm.hub.BroadcastToRoom(room.ID, map[string]interface{}{
			"type":   "ai_game_over",
			"winner": winner,
			"score":  map[string]int{"left": leftScore, "right": rightScore},
		})
		gm.resetForRematch(room)

	case ModeTournament:
		gm.advanceTournament(room, winnerID, winnerAlias, loserID)

	default:
		gm.hub.BroadcastToRoom(room.ID, map[string]interface{}{
			"type":   "game_over",
			"winner": winnerAlias,
			"score":  map[string]int{"left": leftScore, "right": rightScore},
		})
		gm.resetForRematch(room)
	}
}

// recordResult persists the match outcome. Persistence failures are logged
// and never block the game flow.
func (gm *GameManager) recordResult(room *Room, left, right string, leftScore, rightScore int) {
	if gm.store == nil {
		return
	}
	if right == "" && room.Mode == ModePVC {
		right = "Computer"
	}
	if _, err := gm.store.RecordMatchResult(left, right, leftScore, rightScore); err != nil {
		log.Printf("[GAME] Failed to record result for room %s: %v", room.ID, err)
	}
}

func (gm *GameManager) resetForRematch(room *Room) {
	room.Lock()
	room.ResetForRematch()
	room.Unlock()
}

// advanceTournament reports the loser to the bracket, then either announces
// the champion or issues the next pairing a ticket to a fresh room. The
// finished room is retired either way; survivors reconnect with the ticket.
func (gm *GameManager) advanceTournament(room *Room, winnerID, winnerAlias, loserID string) {
	next, err := gm.tournaments.AdvanceNextMatch(room.TournamentID, loserID)
	if err != nil {
		log.Printf("[GAME] Tournament %s cannot advance: %v", room.TournamentID, err)
		gm.retireRoom(room.ID)
		return
	}

	if next.Finished {
		gm.hub.BroadcastToRoom(room.ID, map[string]interface{}{
			"type":   "tournament",
			"status": "finished",
			"winner": next.Winner,
		})
		gm.tournaments.Remove(room.TournamentID)
		gm.retireRoom(room.ID)
		return
	}

	nextRoomID := GenerateRoomID()
	ticket := ""
	if gm.tickets != nil {
		signed, err := gm.tickets.Issue(nextRoomID, string(ModeTournament), next.Players[:], room.TournamentID)
		if err != nil {
			log.Printf("[GAME] Failed to issue ticket for %s: %v", nextRoomID, err)
		} else {
			ticket = signed
		}
	}

	gm.hub.BroadcastToRoom(room.ID, map[string]interface{}{
		"type":   "tournament",
		"status": "next_match",
		"winner": winnerAlias,
		"next": map[string]interface{}{
			"players": next.Players[:],
			"room_id": nextRoomID,
			"ticket":  ticket,
		},
	})
	gm.retireRoom(room.ID)
}
