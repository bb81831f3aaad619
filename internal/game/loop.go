package game

import (
	"log"
	"sync/atomic"
	"time"
)

// GameLoop advances every live room from a single goroutine at a fixed tick
// rate. Broadcasting runs on a slower cadence than simulation so the wire
// rate stays bounded no matter how high the tick rate is set.
type GameLoop struct {
	manager *GameManager
	stopped atomic.Bool
	done    chan struct{} // closed when Run returns
}

func newGameLoop(manager *GameManager) *GameLoop {
	return &GameLoop{manager: manager, done: make(chan struct{})}
}

// Stop makes the loop exit after its current iteration. Done reports the
// actual exit, so a successor loop can wait out the final tick.
func (gl *GameLoop) Stop() {
	gl.stopped.Store(true)
}

func (gl *GameLoop) Done() <-chan struct{} {
	return gl.done
}

// Run drives the tick loop until stopped. The next deadline advances by the
// tick interval each iteration rather than being re-derived from wall time,
// so scheduler jitter doesn't accumulate into simulation drift.
func (gl *GameLoop) Run() {
	defer close(gl.done)

	cfg := gl.manager.cfg
	tick := time.Second / time.Duration(cfg.TickRate)
	broadcastEvery := time.Second / time.Duration(cfg.BroadcastRate)

	log.Printf("[LOOP] Started: %d ticks/s, %d broadcasts/s", cfg.TickRate, cfg.BroadcastRate)

	next := time.Now()
	var lastBroadcast time.Time
	for !gl.stopped.Load() {
		now := time.Now()
		dt := tick.Seconds() + now.Sub(next).Seconds()

		rooms := gl.manager.liveRooms()
		for _, room := range rooms {
			gl.tickRoom(room, now, dt)
		}

		if now.Sub(lastBroadcast) >= broadcastEvery {
			lastBroadcast = now
			for _, room := range rooms {
				gl.broadcastRoom(room)
			}
		}

		next = next.Add(tick)
		if sleep := time.Until(next); sleep > 0 {
			time.Sleep(sleep)
		}
	}
	log.Printf("[LOOP] Stopped")
}

// tickRoom advances one room. A panic in one room's step is contained so the
// rest keep running.
func (gl *GameLoop) tickRoom(room *Room, now time.Time, dt float64) {
	if gl.advanceRoom(room, now, dt) {
		gl.manager.reportRoundOver(room)
	}
}

// advanceRoom runs one step under the room lock and reports whether the win
// threshold was crossed this tick. The lock is released before the recover
// fires, so a panicking room doesn't stay locked.
func (gl *GameLoop) advanceRoom(room *Room, now time.Time, dt float64) (over bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[LOOP] Panic in room %s tick: %v", room.ID, rec)
			over = false
		}
	}()

	room.Lock()
	defer room.Unlock()

	if room.Started && !room.Paused && !room.finished {
		Advance(room, now, dt)
	}
	over = room.Started && !room.finished &&
		(room.Left.Score >= room.Config.WinScore || room.Right.Score >= room.Config.WinScore)
	if over {
		room.finished = true
	}
	return over
}

// broadcastRoom sends a state snapshot. The snapshot is taken under the lock,
// the send happens outside it.
func (gl *GameLoop) broadcastRoom(room *Room) {
	room.Lock()
	if !room.Started || room.finished {
		room.Unlock()
		return
	}
	snapshot := room.NormalizedSnapshot()
	room.Unlock()

	gl.manager.hub.BroadcastToRoom(room.ID, snapshot)
}
