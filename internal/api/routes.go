package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pongarena/backend/internal/api/handlers"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/matchmaking"
	"github.com/pongarena/backend/internal/store"
	"github.com/pongarena/backend/internal/ws"
)

// SetupRoutes configures all API and WebSocket routes
func SetupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	manager *game.GameManager,
	svc *matchmaking.Service,
	matches *store.MatchStore,
	gameWS *ws.GameHandler,
	matchmakingWS *ws.MatchmakingHandler,
) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		g := v1.Group("/game")
		{
			g.GET("/queue/status", handlers.QueueStatus(svc))
			g.GET("/rooms", handlers.ActiveRooms(manager))
			g.GET("/matches", handlers.RecentMatches(matches))
		}

		player := v1.Group("/player")
		{
			player.GET(":username/stats", handlers.PlayerStats(matches))
		}
	}

	// WebSocket endpoints
	router.GET("/ws/game", gameWS.HandleGame)
	router.GET("/ws/matchmaking", matchmakingWS.HandleMatchmaking)
}
