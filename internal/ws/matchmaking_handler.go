package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pongarena/backend/internal/matchmaking"
)

type QueueData struct {
	GameType string `json:"game_type"`
}

// MatchmakingHandler owns queue WebSocket connections. Players hold this
// socket open while waiting; the match_found message arrives on it.
type MatchmakingHandler struct {
	hub *Hub
	svc *matchmaking.Service
}

func NewMatchmakingHandler(hub *Hub, svc *matchmaking.Service) *MatchmakingHandler {
	return &MatchmakingHandler{hub: hub, svc: svc}
}

// HandleMatchmaking upgrades /ws/matchmaking connections.
func (mh *MatchmakingHandler) HandleMatchmaking(c *gin.Context) {
	playerID := c.Query("player_id")
	if playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_id required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:     conn,
		playerID: playerID,
		send:     make(chan []byte, 256),
	}
	client.onClose = func(cl *Client) {
		// A dropped socket means the player can't receive match_found, so
		// withdraw them from every queue.
		for _, mode := range mh.svc.Modes() {
			if err := mh.svc.LeaveQueue(mode, cl.playerID); err != nil {
				log.Printf("[WS] Failed to dequeue %s from %s: %v", cl.playerID, mode, err)
			}
		}
	}

	mh.hub.register <- client

	go client.writePump()
	go mh.readPump(client)
}

func (mh *MatchmakingHandler) readPump(c *Client) {
	defer func() {
		mh.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
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
		mh.handleAction(c, msg)
	}
}

func (mh *MatchmakingHandler) handleAction(c *Client, msg WSMessage) {
	var data QueueData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid queue data")
			return
		}
	}

	switch msg.Action {
	case "join_queue":
		if err := mh.svc.JoinQueue(data.GameType, c.playerID); err != nil {
			c.sendError(err.Error())
			return
		}
		pos, err := mh.svc.Position(data.GameType, c.playerID)
		if err != nil {
			log.Printf("[WS] Position lookup failed for %s: %v", c.playerID, err)
		}
		// Position 0 means the join matched immediately; match_found is
		// already queued on this socket.
		if pos > 0 {
			mh.hub.SendToPlayer(c.playerID, map[string]interface{}{
				"type":      "queued",
				"game_type": data.GameType,
				"position":  pos,
			})
		}

	case "leave_queue":
		if err := mh.svc.LeaveQueue(data.GameType, c.playerID); err != nil {
			c.sendError(err.Error())
			return
		}
		mh.hub.SendToPlayer(c.playerID, map[string]interface{}{
			"type":      "left_queue",
			"game_type": data.GameType,
		})

	default:
		c.sendError("Unknown action")
	}
}
