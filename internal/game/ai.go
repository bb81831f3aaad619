package game

import "time"

// The AI always defends the right paddle in PVC rooms.

// moveAIPaddle steers the computer opponent: at most once per predict
// interval it forward-simulates the ball's trajectory to the paddle plane,
// then moves toward the cached prediction, leaving a small deadband so the
// paddle doesn't jitter around the target.
func moveAIPaddle(r *Room, now time.Time, dt float64) {
	cfg := r.Config
	ai := r.AI

	if now.Sub(ai.LastPredict) >= cfg.AIPredictEvery {
		ai.LastPredict = now
		ai.PredictedY = predictBallY(r)
	}

	paddle := &r.Right
	center := paddle.Y + cfg.PaddleHeight/2

	ai.Input = InputState{}
	if center-ai.PredictedY > cfg.AIDeadband {
		ai.Input.Up = true
		paddle.Y -= cfg.AISpeed * dt
	} else if ai.PredictedY-center > cfg.AIDeadband {
		ai.Input.Down = true
		paddle.Y += cfg.AISpeed * dt
	}
	clampPaddle(r, paddle)
}

// predictBallY estimates where the ball will cross the AI paddle's x-plane,
// reflecting off the top and bottom walls. Iterations are bounded so a
// degenerate velocity can't loop forever, and the result is perturbed with
// some probability to keep the opponent beatable.
func predictBallY(r *Room) float64 {
	cfg := r.Config
	ball := r.Ball
	paddleX := r.Right.X

	if ball.VX <= 0 {
		// Ball moving away; drift back to center.
		return cfg.CanvasHeight / 2
	}
	if ball.VY == 0 {
		return ball.Y
	}

	x := ball.X
	y := ball.Y
	vx := ball.VX
	vy := ball.VY

	for i := 0; i < cfg.AIPredictSteps; i++ {
		if x >= paddleX {
			break
		}

		var timeToWall float64
		if vy > 0 {
			timeToWall = (cfg.CanvasHeight - y) / vy
		} else {
			timeToWall = -y / vy
		}
		timeToPaddle := (paddleX - x) / vx

		step := timeToWall
		if timeToPaddle < step {
			step = timeToPaddle
		}
		if step < 0 {
			break
		}

		x += vx * step
		y += vy * step

		if y <= 0 || y >= cfg.CanvasHeight {
			vy = -vy
			if y < 0 {
				y = 0
			}
			if y > cfg.CanvasHeight {
				y = cfg.CanvasHeight
			}
		}
	}

	if r.rng.Float64() < cfg.AIErrorChance {
		y += (r.rng.Float64()*2 - 1) * cfg.AIErrorRange
	}
	return y
}
