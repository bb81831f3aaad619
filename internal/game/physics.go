package game

import "time"

// Advance runs one simulation step for a started, unpaused room. The caller
// must hold the room lock. dt is the elapsed time in seconds since the
// previous tick.
func Advance(r *Room, now time.Time, dt float64) {
	r.runDueEvents(now)

	if r.Ball.Render {
		moveBall(r, dt)
		handleWallCollisions(r)
		handlePaddleCollisions(r)
		handleScoring(r)
	}

	movePaddles(r, dt)
	if r.AI != nil {
		moveAIPaddle(r, now, dt)
	}
}

func moveBall(r *Room, dt float64) {
	r.Ball.X += r.Ball.VX * dt
	r.Ball.Y += r.Ball.VY * dt
}

// handleWallCollisions reflects the ball off the top and bottom walls.
// Only the leading edge is tested, gated on vertical direction, so a ball
// resting on the boundary can't be reflected twice.
func handleWallCollisions(r *Room) {
	radius := r.Config.BallDiameter / 2
	factor := r.Config.SpeedupFactor

	if r.Ball.VY > 0 && r.Ball.Y+radius >= r.Config.CanvasHeight {
		r.Ball.VY = -r.Ball.VY * factor
		r.Ball.VX *= factor
	}
	if r.Ball.VY < 0 && r.Ball.Y-radius <= 0 {
		r.Ball.VY = -r.Ball.VY * factor
		r.Ball.VX *= factor
	}
}

// handlePaddleCollisions tests each paddle only while the ball travels
// toward it, avoiding redundant checks and double reflection.
func handlePaddleCollisions(r *Room) {
	if r.Ball.VX < 0 && paddleHit(r, &r.Left) {
		reflectBall(r, &r.Left)
	}
	if r.Ball.VX > 0 && paddleHit(r, &r.Right) {
		reflectBall(r, &r.Right)
	}
}

// paddleHit requires both horizontal overlap between the ball's leading edge
// and the paddle's facing edge, and vertical overlap between the ball's span
// and the paddle. The vertical span is sampled at a fixed number of points
// so a fast ball can't tunnel past the paddle in a single tick.
func paddleHit(r *Room, paddle *PaddleState) bool {
	cfg := r.Config
	radius := cfg.BallDiameter / 2

	horizontal := false
	if paddle.X == 0 { // left paddle
		if r.Ball.X-radius <= paddle.X+cfg.PaddleWidth {
			horizontal = true
		}
	} else { // right paddle
		if r.Ball.X+radius >= paddle.X {
			horizontal = true
		}
	}
	if !horizontal {
		return false
	}

	ballTop := r.Ball.Y - radius
	ballBottom := r.Ball.Y + radius
	paddleTop := paddle.Y
	paddleBottom := paddle.Y + cfg.PaddleHeight

	samples := cfg.CollisionSamples
	step := (ballBottom - ballTop) / float64(samples)
	for i := 0; i <= samples; i++ {
		y := ballTop + float64(i)*step
		if y >= paddleTop && y <= paddleBottom {
			return true
		}
	}
	return false
}

// reflectBall inverts the horizontal direction and angles the return based
// on where the ball struck the paddle, then applies the rally speed-up.
func reflectBall(r *Room, paddle *PaddleState) {
	cfg := r.Config
	half := cfg.PaddleHeight / 2
	relativeHit := (r.Ball.Y - (paddle.Y + half)) / half

	r.Ball.VX = -r.Ball.VX
	r.Ball.VY = cfg.BallSpeed * relativeHit
	r.Ball.VX *= cfg.SpeedupFactor
	r.Ball.VY *= cfg.SpeedupFactor
}

func movePaddles(r *Room, dt float64) {
	speed := r.Config.PaddleSpeed * dt
	for _, slot := range r.Players {
		paddle := r.Paddle(slot.Side)
		if slot.Input.Up {
			paddle.Y -= speed
		}
		if slot.Input.Down {
			paddle.Y += speed
		}
		clampPaddle(r, paddle)
	}
}

func clampPaddle(r *Room, paddle *PaddleState) {
	maxY := r.Config.CanvasHeight - r.Config.PaddleHeight
	if paddle.Y < 0 {
		paddle.Y = 0
	}
	if paddle.Y > maxY {
		paddle.Y = maxY
	}
}

// handleScoring awards a point when the ball crosses either boundary, hides
// the ball, and schedules the serve toward the loser after the reset delay.
// The scoreboard reaches clients before play resumes.
func handleScoring(r *Room) {
	cfg := r.Config
	if r.Ball.X < 0 {
		r.Right.Score++
		scheduleServe(r, SideLeft)
	} else if r.Ball.X > cfg.CanvasWidth {
		r.Left.Score++
		scheduleServe(r, SideRight)
	}
}

// scheduleServe freezes the ball at center aimed at the side that just lost
// the point, then re-enables rendering once the delay elapses.
func scheduleServe(r *Room, lostSide Side) {
	cfg := r.Config
	r.Ball.Render = false
	r.Ball.X = cfg.CanvasWidth / 2
	r.Ball.Y = cfg.CanvasHeight / 2
	if lostSide == SideLeft {
		r.Ball.VX = -cfg.BallSpeed
	} else {
		r.Ball.VX = cfg.BallSpeed
	}
	r.Ball.VY = cfg.BallSpeed * randomSign(r.rng)

	r.Schedule(cfg.ServeDelay, func(room *Room) {
		room.Ball.Render = true
	})
}
