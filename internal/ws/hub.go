package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Client represents one connected WebSocket client. roomID is empty for
// matchmaking connections.
type Client struct {
	conn     *websocket.Conn
	playerID string
	roomID   string
	send     chan []byte

	// onClose runs once when the client leaves the hub, before the send
	// channel closes. Set by the handler that owns the connection.
	onClose func(*Client)
}

// WSMessage is the envelope for every inbound client message.
type WSMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Hub maintains the set of active clients and their room groupings. All
// mutation flows through the register/unregister channels in Run.
type Hub struct {
	clients    map[string]*Client            // playerID -> Client
	rooms      map[string]map[string]*Client // roomID -> playerID -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes connect and disconnect events. Start it once, in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, exists := h.clients[client.playerID]; exists {
				log.Printf("[WS] Player %s reconnecting - closing old connection", client.playerID)
				if err := old.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"), time.Now().Add(5*time.Second)); err != nil {
					log.Printf("[WS] Error writing close control to old client %s: %v", old.playerID, err)
				}
				old.conn.Close()
				h.dropLocked(old)
			}

			h.clients[client.playerID] = client
			if client.roomID != "" {
				if _, exists := h.rooms[client.roomID]; !exists {
					h.rooms[client.roomID] = make(map[string]*Client)
				}
				h.rooms[client.roomID][client.playerID] = client
			}
			h.mu.Unlock()

			log.Printf("[WS] Player %s connected (room=%s)", client.playerID, client.roomID)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.playerID]; ok && cur == client {
				delete(h.clients, client.playerID)
				h.dropLocked(client)
				log.Printf("[WS] Player %s disconnected (room=%s)", client.playerID, client.roomID)
			}
			h.mu.Unlock()

			if client.onClose != nil {
				client.onClose(client)
			}
		}
	}
}

// dropLocked removes a client from its room group and closes its send
// channel so writePump exits promptly. Caller must hold the lock; a client
// is dropped at most once (replacement deletes it from clients first, and
// the unregister branch checks identity), so the close cannot double-fire.
func (h *Hub) dropLocked(client *Client) {
	if room, exists := h.rooms[client.roomID]; exists {
		delete(room, client.playerID)
		if len(room) == 0 {
			delete(h.rooms, client.roomID)
		}
	}
	close(client.send)
}

// BroadcastToRoom sends a message to every client in a room.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, exists := h.rooms[roomID]; exists {
		for _, client := range room {
			select {
			case client.send <- data:
			default:
				log.Printf("[WS] Send buffer full for player %s in room %s, dropping message", client.playerID, roomID)
			}
		}
	}
}

// SendToPlayer sends a message to a specific player.
func (h *Hub) SendToPlayer(playerID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, exists := h.clients[playerID]; exists {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] SendToPlayer dropped message for player %s (buffer full)", playerID)
		}
	} else {
		log.Printf("[WS] SendToPlayer no client for player %s", playerID)
	}
}

// writePump writes queued messages and keepalive pings to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for player %s: %v", c.playerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for player %s: %v", c.playerID, err)
				return
			}
		}
	}
}

// sendError sends an error message to the client without disconnecting it.
func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	select {
	case c.send <- data:
	default:
	}
}
