package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pongarena/backend/internal/config"
)

// Mode identifies how a room was matched.
type Mode string

const (
	ModePVP        Mode = "PVP"
	ModePVC        Mode = "PVC"
	ModeTournament Mode = "TOURNAMENT"
)

// Side is a paddle slot within a room.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// InputState is the per-tick movement intent for one paddle.
type InputState struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// PlayerSlot holds a seated player's per-room state.
type PlayerSlot struct {
	Side  Side       `json:"side"`
	Input InputState `json:"input"`
	Ready bool       `json:"ready"`
	Alias string     `json:"alias"`
}

// Spectator is a connected non-player (tournament participants between
// matches, or a third joiner in a full room).
type Spectator struct {
	Ready bool `json:"ready"`
}

// BallState is the authoritative ball. While Render is false the ball is
// frozen at its reset position waiting for the serve event.
type BallState struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Render bool    `json:"render"`
}

// PaddleState is one side's paddle. X is fixed per side.
type PaddleState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score int     `json:"score"`
}

// AIState drives the computer opponent in PVC rooms. Its synthetic input is
// consumed exactly like human input.
type AIState struct {
	LastPredict time.Time
	PredictedY  float64
	Input       InputState
}

// RoomConfig carries the per-room simulation tunables. Values come from the
// application config at room creation; nothing in the hot path re-reads env.
type RoomConfig struct {
	CanvasWidth  float64
	CanvasHeight float64
	PaddleWidth  float64
	PaddleHeight float64
	BallDiameter float64

	BallSpeed     float64
	PaddleSpeed   float64
	SpeedupFactor float64
	WinScore      int
	ServeDelay    time.Duration

	// CollisionSamples is the number of points sampled along the ball's
	// vertical span when testing paddle overlap. Keeps fast balls from
	// tunneling through the paddle between ticks.
	CollisionSamples int

	AISpeed        float64
	AIPredictEvery time.Duration
	AIDeadband     float64
	AIErrorChance  float64
	AIErrorRange   float64
	AIPredictSteps int
}

// RoomConfigFrom maps application config onto per-room tunables.
func RoomConfigFrom(cfg *config.Config) RoomConfig {
	samples := cfg.CollisionSamples
	if samples < 30 {
		samples = 30
	}
	return RoomConfig{
		CanvasWidth:      cfg.CanvasWidth,
		CanvasHeight:     cfg.CanvasHeight,
		PaddleWidth:      cfg.PaddleWidth,
		PaddleHeight:     cfg.PaddleHeight,
		BallDiameter:     cfg.BallDiameter,
		BallSpeed:        cfg.BallSpeed,
		PaddleSpeed:      cfg.PaddleSpeed,
		SpeedupFactor:    cfg.SpeedupFactor,
		WinScore:         cfg.WinScore,
		ServeDelay:       time.Duration(cfg.ServeDelayMillis) * time.Millisecond,
		CollisionSamples: samples,
		AISpeed:          cfg.AISpeed,
		AIPredictEvery:   time.Duration(cfg.AIPredictSeconds) * time.Second,
		AIDeadband:       cfg.AIDeadband,
		AIErrorChance:    cfg.AIErrorChance,
		AIErrorRange:     cfg.AIErrorRange,
		AIPredictSteps:   cfg.AIPredictMaxSteps,
	}
}

// scheduledEvent is a delayed room mutation (e.g. "serve the ball in 1s").
// Events run under the room lock at the start of the tick they come due.
type scheduledEvent struct {
	id int
	at time.Time
	fn func(*Room)
}

// Room is one isolated match: authoritative state plus its subscriber group.
// All mutation happens under mu; the game loop and the manager both take it.
type Room struct {
	ID           string
	Mode         Mode
	Config       RoomConfig
	TournamentID string
	RoomSize     int

	Players    map[string]*PlayerSlot
	Spectators map[string]*Spectator
	Ball       BallState
	Left       PaddleState
	Right      PaddleState
	AI         *AIState

	Started  bool
	Paused   bool
	finished bool // round-over already reported, awaiting manager

	mu      sync.Mutex
	rng     *rand.Rand
	timers  []scheduledEvent
	eventID int
}

// NewRoom creates a room in its initial serving state.
func NewRoom(id string, mode Mode, cfg RoomConfig) *Room {
	r := &Room{
		ID:         id,
		Mode:       mode,
		Config:     cfg,
		RoomSize:   2,
		Players:    make(map[string]*PlayerSlot),
		Spectators: make(map[string]*Spectator),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if mode == ModePVC {
		r.RoomSize = 1
		r.AI = &AIState{PredictedY: cfg.CanvasHeight / 2}
	}
	r.resetPositions()
	r.Ball.VX = cfg.BallSpeed * randomSign(r.rng)
	r.Ball.VY = cfg.BallSpeed * randomSign(r.rng)
	r.Ball.Render = true
	return r
}

func randomSign(rng *rand.Rand) float64 {
	if rng.Float64() < 0.5 {
		return -1
	}
	return 1
}

// resetPositions recenters ball and paddles without touching scores.
func (r *Room) resetPositions() {
	cfg := r.Config
	r.Ball.X = cfg.CanvasWidth / 2
	r.Ball.Y = cfg.CanvasHeight / 2
	r.Left = PaddleState{X: 0, Y: cfg.CanvasHeight/2 - cfg.PaddleHeight/2, Score: r.Left.Score}
	r.Right = PaddleState{X: cfg.CanvasWidth - cfg.PaddleWidth, Y: cfg.CanvasHeight/2 - cfg.PaddleHeight/2, Score: r.Right.Score}
}

// Paddle returns the paddle for a side.
func (r *Room) Paddle(side Side) *PaddleState {
	if side == SideLeft {
		return &r.Left
	}
	return &r.Right
}

// Lock/Unlock expose the room's mutex to the manager and the loop. Every
// read-modify-write of room state goes through them.
func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// Schedule queues fn to run under the room lock once delay has elapsed.
// Returns an id usable with Cancel. Caller must hold the lock.
func (r *Room) Schedule(delay time.Duration, fn func(*Room)) int {
	r.eventID++
	r.timers = append(r.timers, scheduledEvent{id: r.eventID, at: time.Now().Add(delay), fn: fn})
	return r.eventID
}

// Cancel drops a pending scheduled event. Caller must hold the lock.
func (r *Room) Cancel(id int) {
	for i, ev := range r.timers {
		if ev.id == id {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			return
		}
	}
}

// runDueEvents fires every event whose deadline has passed. Caller must hold
// the lock; fn may schedule further events.
func (r *Room) runDueEvents(now time.Time) {
	for i := 0; i < len(r.timers); {
		ev := r.timers[i]
		if now.Before(ev.at) {
			i++
			continue
		}
		r.timers = append(r.timers[:i], r.timers[i+1:]...)
		ev.fn(r)
	}
}

// PendingEvents reports how many delayed events are queued. Caller must hold
// the lock.
func (r *Room) PendingEvents() int {
	return len(r.timers)
}

// PlayerBySide returns the id of the player seated on a side, or "".
// Caller must hold the lock.
func (r *Room) PlayerBySide(side Side) string {
	for id, slot := range r.Players {
		if slot.Side == side {
			return id
		}
	}
	return ""
}

// sideTaken reports whether a side is already occupied. Caller must hold the
// lock.
func (r *Room) sideTaken(side Side) bool {
	return r.PlayerBySide(side) != ""
}

// requiredReady reports whether everyone who must confirm has done so:
// all seated players plus, in tournament rooms, the spectators waiting for
// their turn. Caller must hold the lock.
func (r *Room) requiredReady() bool {
	needed := r.RoomSize
	if len(r.Players) < needed {
		return false
	}
	for _, p := range r.Players {
		if !p.Ready {
			return false
		}
	}
	if r.Mode == ModeTournament {
		for _, s := range r.Spectators {
			if !s.Ready {
				return false
			}
		}
	}
	return true
}

// ResetForRematch clears scores and ready flags after a finished match so the
// same opponents can go again. Caller must hold the lock.
func (r *Room) ResetForRematch() {
	r.Left.Score = 0
	r.Right.Score = 0
	r.resetPositions()
	r.Ball.VX = r.Config.BallSpeed * randomSign(r.rng)
	r.Ball.VY = r.Config.BallSpeed * randomSign(r.rng)
	r.Ball.Render = true
	r.Started = false
	r.Paused = false
	r.finished = false
	r.timers = nil
	for _, p := range r.Players {
		p.Ready = false
		p.Input = InputState{}
	}
	for _, s := range r.Spectators {
		s.Ready = false
	}
}

// Snapshot is the resolution-independent state sent to clients: everything
// divided by canvas dimensions so any client can scale it back up.
type Snapshot struct {
	Type    string          `json:"type"`
	Ball    SnapshotBall    `json:"ball"`
	Paddles SnapshotPaddles `json:"paddles"`
}

type SnapshotBall struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Render bool    `json:"render"`
}

type SnapshotPaddle struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score int     `json:"score"`
}

type SnapshotPaddles struct {
	Left  SnapshotPaddle `json:"left"`
	Right SnapshotPaddle `json:"right"`
}

// NormalizedSnapshot builds the broadcast payload. Caller must hold the lock.
func (r *Room) NormalizedSnapshot() Snapshot {
	w := r.Config.CanvasWidth
	h := r.Config.CanvasHeight
	return Snapshot{
		Type: "state_update",
		Ball: SnapshotBall{
			X:      r.Ball.X / w,
			Y:      r.Ball.Y / h,
			VX:     r.Ball.VX / w,
			VY:     r.Ball.VY / h,
			Render: r.Ball.Render,
		},
		Paddles: SnapshotPaddles{
			Left:  SnapshotPaddle{X: r.Left.X / w, Y: r.Left.Y / h, Score: r.Left.Score},
			Right: SnapshotPaddle{X: r.Right.X / w, Y: r.Right.Y / h, Score: r.Right.Score},
		},
	}
}
