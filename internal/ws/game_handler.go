package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/ticket"
)

// Inbound message payloads for game connections.
type InputData struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

type AliasData struct {
	Alias string `json:"alias"`
}

// GameHandler owns game-room WebSocket connections: it admits clients by
// ticket, relays their actions into the manager, and cleans up on
// disconnect.
type GameHandler struct {
	hub     *Hub
	manager *game.GameManager
	tickets *ticket.Issuer
}

func NewGameHandler(hub *Hub, manager *game.GameManager, tickets *ticket.Issuer) *GameHandler {
	return &GameHandler{hub: hub, manager: manager, tickets: tickets}
}

// HandleGame upgrades /ws/game connections. A valid ticket is the only way
// in: it names the room, the mode and (for per-player tickets) the bearer.
func (gh *GameHandler) HandleGame(c *gin.Context) {
	tokenString := c.Query("ticket")
	if tokenString == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket required"})
		return
	}

	claims, err := gh.tickets.Verify(tokenString)
	if err != nil {
		log.Printf("[WS] Rejected game connection: %v", err)
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid ticket"})
		return
	}

	playerID := claims.UserID
	if playerID == "" {
		// Roster-wide tickets (tournament follow-ups) carry no bearer; the
		// client identifies itself and must be on the roster.
		playerID = c.Query("player_id")
		if !rosterContains(claims.Users, playerID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "player not on ticket roster"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	room := gh.manager.CreateOrGetRoom(claims.RoomID, game.Mode(claims.GameType), claims.TournamentID)
	side := gh.manager.AddPlayer(room, playerID)

	client := &Client{
		conn:     conn,
		playerID: playerID,
		roomID:   claims.RoomID,
		send:     make(chan []byte, 256),
	}
	client.onClose = func(cl *Client) {
		gh.manager.RemovePlayer(room, cl.playerID)
	}

	gh.hub.register <- client

	go client.writePump()
	go gh.readPump(client, room)

	// Queue the welcome directly; registration may still be in flight.
	role := "spectator"
	if side != "" {
		role = string(side)
	}
	if data, err := json.Marshal(map[string]interface{}{
		"type":    "joined",
		"room_id": room.ID,
		"side":    role,
	}); err == nil {
		client.send <- data
	}
}

func rosterContains(users []string, playerID string) bool {
	if playerID == "" {
		return false
	}
	for _, u := range users {
		if u == playerID {
			return true
		}
	}
	return false
}

// readPump reads game actions until the connection drops.
func (gh *GameHandler) readPump(c *Client, room *game.Room) {
	defer func() {
		gh.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close for player %s: %v", c.playerID, err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		gh.handleAction(c, room, msg)
	}
}

// handleAction dispatches one inbound game message. Unknown actions are
// answered with an error and otherwise ignored.
func (gh *GameHandler) handleAction(c *Client, room *game.Room, msg WSMessage) {
	switch msg.Action {
	case "input":
		var data InputData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid input data")
			return
		}
		gh.manager.SetPlayerInput(room, c.playerID, game.InputState{Up: data.Up, Down: data.Down})

	case "player_ready":
		gh.manager.SetReady(room, c.playerID)

	case "pause_game":
		gh.manager.SetPaused(room)
		gh.hub.BroadcastToRoom(room.ID, map[string]interface{}{
			"type":   "paused",
			"player": c.playerID,
		})

	case "resume_game":
		gh.manager.SetResumed(room)
		gh.hub.BroadcastToRoom(room.ID, map[string]interface{}{
			"type":   "resumed",
			"player": c.playerID,
		})

	case "alias":
		var data AliasData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid alias data")
			return
		}
		gh.manager.SetPlayerAlias(room, c.playerID, data.Alias)

	default:
		c.sendError("Unknown action")
	}
}
