package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Arena geometry
	CanvasWidth  float64
	CanvasHeight float64
	PaddleWidth  float64
	PaddleHeight float64
	BallDiameter float64

	// Simulation tuning
	BallSpeed        float64
	PaddleSpeed      float64
	SpeedupFactor    float64
	WinScore         int
	TickRate         int
	BroadcastRate    int
	ServeDelayMillis int
	CollisionSamples int

	// AI opponent
	AISpeed           float64
	AIPredictSeconds  int
	AIDeadband        float64
	AIErrorChance     float64
	AIErrorRange      float64
	AIPredictMaxSteps int

	// Matchmaking
	TournamentSize        int
	QueueMaxWaitSeconds   int
	MatchmakerPollSeconds int

	// Security
	JWTSecret        string
	TicketTTLSeconds int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Arena geometry
		CanvasWidth:  getEnvFloat("CANVAS_WIDTH", 800),
		CanvasHeight: getEnvFloat("CANVAS_HEIGHT", 600),
		PaddleWidth:  getEnvFloat("PADDLE_WIDTH", 15),
		PaddleHeight: getEnvFloat("PADDLE_HEIGHT", 100),
		BallDiameter: getEnvFloat("BALL_DIAMETER", 20),

		// Simulation tuning
		BallSpeed:        getEnvFloat("BALL_SPEED", 350),
		PaddleSpeed:      getEnvFloat("PADDLE_SPEED", 550),
		SpeedupFactor:    getEnvFloat("SPEEDUP_FACTOR", 1.05),
		WinScore:         getEnvInt("WIN_SCORE", 10),
		TickRate:         getEnvInt("TICK_RATE", 30),
		BroadcastRate:    getEnvInt("BROADCAST_RATE", 20),
		ServeDelayMillis: getEnvInt("SERVE_DELAY_MILLIS", 1000),
		CollisionSamples: getEnvInt("COLLISION_SAMPLES", 50),

		// AI opponent
		AISpeed:           getEnvFloat("AI_SPEED", 550),
		AIPredictSeconds:  getEnvInt("AI_PREDICT_SECONDS", 1),
		AIDeadband:        getEnvFloat("AI_DEADBAND", 15),
		AIErrorChance:     getEnvFloat("AI_ERROR_CHANCE", 0.6),
		AIErrorRange:      getEnvFloat("AI_ERROR_RANGE", 100),
		AIPredictMaxSteps: getEnvInt("AI_PREDICT_MAX_STEPS", 50),

		// Matchmaking
		TournamentSize:        getEnvInt("TOURNAMENT_SIZE", 4),
		QueueMaxWaitSeconds:   getEnvInt("QUEUE_MAX_WAIT_SECONDS", 300),
		MatchmakerPollSeconds: getEnvInt("MATCHMAKER_POLL_SECONDS", 2),

		// Security
		JWTSecret:        getEnv("JWT_SECRET", "change-me-in-production"),
		TicketTTLSeconds: getEnvInt("TICKET_TTL_SECONDS", 3600),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
