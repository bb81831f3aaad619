package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pongarena/backend/internal/api"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/database"
	"github.com/pongarena/backend/internal/game"
	"github.com/pongarena/backend/internal/matchmaking"
	"github.com/pongarena/backend/internal/middleware"
	"github.com/pongarena/backend/internal/migrations"
	"github.com/pongarena/backend/internal/redis"
	"github.com/pongarena/backend/internal/store"
	"github.com/pongarena/backend/internal/ticket"
	"github.com/pongarena/backend/internal/ws"
)

func main() {
	// Initialize configuration (loads .env if present)
	cfg := config.Load()

	// Initialize database (optional: game runs in-memory without it)
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if os.Getenv("MIGRATE_ON_START") == "true" {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
	} else {
		log.Println("[DB] DATABASE_URL not set - match history disabled")
	}

	// Initialize Redis (optional: falls back to in-process queues)
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		var err error
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("[REDIS] REDIS_URL not set - using in-memory matchmaking queues")
	}

	// Wire the hub, game manager and matchmaker
	hub := ws.NewHub()
	go hub.Run()

	issuer := ticket.NewIssuer(cfg.JWTSecret, time.Duration(cfg.TicketTTLSeconds)*time.Second)
	matches := store.NewMatchStore(db)
	tournaments := game.NewTournamentManager()
	manager := game.NewGameManager(cfg, hub, matches, tournaments, issuer)

	var pool matchmaking.Pool
	if rdb != nil {
		pool = matchmaking.NewRedisPool(rdb)
	} else {
		pool = matchmaking.NewMemoryPool()
	}
	svc := matchmaking.NewService(cfg, pool, tournaments, issuer, hub)

	// Start matchmaker worker (drains queues and purges stale entries)
	go matchmaking.StartMatchmakerWorker(context.Background(), svc, cfg)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg))

	gameWS := ws.NewGameHandler(hub, manager, issuer)
	matchmakingWS := ws.NewMatchmakingHandler(hub, svc)
	api.SetupRoutes(router, cfg, manager, svc, matches, gameWS, matchmakingWS)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting PongArena server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
