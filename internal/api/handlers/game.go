package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/matchmaking"
	"github.com/pongarena/backend/internal/store"
)

// QueueStatus reports how many players wait per mode and, when player_id is
// given, that player's position in a queue.
func QueueStatus(svc *matchmaking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"queues": svc.QueueSizes()}

		playerID := c.Query("player_id")
		mode := c.Query("game_type")
		if playerID != "" && mode != "" {
			pos, err := svc.Position(mode, playerID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			resp["position"] = pos
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ActiveRooms reports the number of live rooms.
func ActiveRooms(manager *game.GameManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"active_rooms": manager.RoomCount()})
	}
}

// RecentMatches returns the latest finished matches.
func RecentMatches(matches *store.MatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		records, err := matches.RecentMatches(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load matches"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": records})
	}
}

// PlayerStats returns one player's aggregate record.
func PlayerStats(matches *store.MatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param("username")
		player, err := matches.PlayerStats(username)
		if err != nil || player == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
			return
		}
		c.JSON(http.StatusOK, player)
	}
}
