package matchmaking

import (
	"sort"
	"sync"
	"time"
)

// MemoryPool is the in-process queue backend, used when Redis is not
// configured and in tests. One mutex covers every mode; contention is a
// handful of matchmaker ticks per second.
type MemoryPool struct {
	mu     sync.Mutex
	queues map[string]map[string]time.Time
}

func NewMemoryPool() *MemoryPool {
	return &MemoryPool{queues: make(map[string]map[string]time.Time)}
}

func (p *MemoryPool) queue(mode string) map[string]time.Time {
	q, ok := p.queues[mode]
	if !ok {
		q = make(map[string]time.Time)
		p.queues[mode] = q
	}
	return q
}

// ordered returns the queued players oldest first. Caller must hold the lock.
func (p *MemoryPool) ordered(mode string) []Entry {
	q := p.queues[mode]
	entries := make([]Entry, 0, len(q))
	for id, at := range q {
		entries = append(entries, Entry{PlayerID: id, EnqueuedAt: at})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].EnqueuedAt.Equal(entries[j].EnqueuedAt) {
			return entries[i].PlayerID < entries[j].PlayerID
		}
		return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
	})
	return entries
}

func (p *MemoryPool) Add(mode, playerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue(mode)[playerID] = time.Now()
	return nil
}

func (p *MemoryPool) Remove(mode, playerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.queue(mode), playerID)
	return nil
}

func (p *MemoryPool) PopIfReady(mode string, n int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.ordered(mode)
	if len(entries) < n {
		return nil, nil
	}
	players := make([]string, 0, n)
	q := p.queue(mode)
	for _, e := range entries[:n] {
		players = append(players, e.PlayerID)
		delete(q, e.PlayerID)
	}
	return players, nil
}

func (p *MemoryPool) Position(mode, playerID string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, e := range p.ordered(mode) {
		if e.PlayerID == playerID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (p *MemoryPool) Count(mode string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue(mode)), nil
}

func (p *MemoryPool) PurgeStale(mode string, maxWait time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-maxWait)
	q := p.queue(mode)
	purged := 0
	for id, at := range q {
		if at.Before(cutoff) {
			delete(q, id)
			purged++
		}
	}
	return purged, nil
}
