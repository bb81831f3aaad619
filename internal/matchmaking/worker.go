package matchmaking

import (
	"context"
	"log"
	"time"

	"github.com/pongarena/backend/internal/config"
)

// StartMatchmakerWorker runs the background job that drains the queues.
// Joins already try to match inline; the worker catches groups formed by
// out-of-band adds (another process sharing the Redis pool) and evicts
// players who waited past the limit.
func StartMatchmakerWorker(ctx context.Context, svc *Service, cfg *config.Config) {
	interval := time.Duration(cfg.MatchmakerPollSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[MATCHMAKER] Starting matchmaker worker (poll every %v)", interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[MATCHMAKER] Worker stopped")
			return
		case <-ticker.C:
			for _, mode := range svc.Modes() {
				// Drain every full group before moving on.
				for svc.TryMatch(mode) {
				}
			}
			svc.PurgeStale()
		}
	}
}
