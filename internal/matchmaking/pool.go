package matchmaking

import "time"

// Entry is one waiting player in a queue.
type Entry struct {
	PlayerID   string
	EnqueuedAt time.Time
}

// Pool is the queue backend. Queues are partitioned by mode; ordering is
// enqueue time. PopIfReady is the only way players leave a queue as a match,
// and it is atomic: it removes exactly n players or none at all, so two
// concurrent matchers can never split one group.
type Pool interface {
	// Add enqueues a player. Re-adding an already queued player refreshes
	// their enqueue time.
	Add(mode, playerID string) error

	// Remove withdraws a player from a queue. Missing players are a no-op.
	Remove(mode, playerID string) error

	// PopIfReady atomically removes and returns the n longest-waiting
	// players, or nil if fewer than n are queued.
	PopIfReady(mode string, n int) ([]string, error)

	// Position reports a player's 1-based place in line, or 0 if absent.
	Position(mode, playerID string) (int, error)

	// Count reports how many players are queued for a mode.
	Count(mode string) (int, error)

	// PurgeStale drops entries older than maxWait and returns how many went.
	PurgeStale(mode string, maxWait time.Duration) (int, error)
}
