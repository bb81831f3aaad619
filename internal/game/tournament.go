package game

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// participant tracks one entrant's bracket status. A participant goes
// inactive exactly once, when it loses any match; waiting drops the moment
// it is drafted into a pairing and comes back only on a round reset.
type participant struct {
	active  bool
	waiting bool
}

type bracket struct {
	order []string // insertion order, drives pairing priority
	state map[string]*participant
}

// NextMatch is the outcome of advancing a bracket: either a pairing for the
// next match, or the terminal winner.
type NextMatch struct {
	Players  [2]string
	Pairing  bool
	Winner   string
	Finished bool
}

// ErrCannotProgress is returned for the degenerate bracket with zero active
// participants.
var ErrCannotProgress = errors.New("tournament cannot progress")

// TournamentManager holds all live single-elimination brackets. Matches in a
// tournament run one at a time, so one lock over the whole map is enough.
type TournamentManager struct {
	mu          sync.Mutex
	tournaments map[string]*bracket
}

func NewTournamentManager() *TournamentManager {
	return &TournamentManager{tournaments: make(map[string]*bracket)}
}

// Create registers a bracket with every participant active and waiting.
func (tm *TournamentManager) Create(tournamentID string, players []string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	b := &bracket{state: make(map[string]*participant, len(players))}
	for _, p := range players {
		if _, exists := b.state[p]; exists {
			continue
		}
		b.order = append(b.order, p)
		b.state[p] = &participant{active: true, waiting: true}
	}
	tm.tournaments[tournamentID] = b
	log.Printf("[TOURNAMENT] Created tournament %s with %d players", tournamentID, len(b.order))
}

// Remove drops a finished (or abandoned) bracket.
func (tm *TournamentManager) Remove(tournamentID string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.tournaments, tournamentID)
}

// Exists reports whether a bracket is registered.
func (tm *TournamentManager) Exists(tournamentID string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, ok := tm.tournaments[tournamentID]
	return ok
}

// CurrentPairing returns the participants drafted into the pending match
// (active and not waiting). Room joins use this to seat players vs
// spectators.
func (tm *TournamentManager) CurrentPairing(tournamentID string) []string {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	b, ok := tm.tournaments[tournamentID]
	if !ok {
		return nil
	}
	var pairing []string
	for _, p := range b.order {
		st := b.state[p]
		if st.active && !st.waiting {
			pairing = append(pairing, p)
		}
	}
	return pairing
}

// AdvanceNextMatch records an optional loser and computes what happens next:
// the next pairing, a new round, or the tournament winner. The round-reset
// step is a bounded loop rather than recursion so malformed state can't spin
// forever.
func (tm *TournamentManager) AdvanceNextMatch(tournamentID, loserID string) (*NextMatch, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	b, ok := tm.tournaments[tournamentID]
	if !ok {
		return nil, fmt.Errorf("tournament %s not found", tournamentID)
	}

	if loserID != "" {
		st, ok := b.state[loserID]
		if !ok {
			return nil, fmt.Errorf("loser %s not in tournament %s", loserID, tournamentID)
		}
		st.active = false
		st.waiting = false
	}

	// One reset per call is all a well-formed bracket ever needs; the bound
	// guards against corrupted state.
	for attempt := 0; attempt < len(b.order)+1; attempt++ {
		var waiting, active []string
		for _, p := range b.order {
			st := b.state[p]
			if st.active {
				active = append(active, p)
				if st.waiting {
					waiting = append(waiting, p)
				}
			}
		}

		switch {
		case len(waiting) >= 2:
			p1, p2 := waiting[0], waiting[1]
			b.state[p1].waiting = false
			b.state[p2].waiting = false
			log.Printf("[TOURNAMENT] %s next match: %s vs %s", tournamentID, p1, p2)
			return &NextMatch{Players: [2]string{p1, p2}, Pairing: true}, nil

		case len(active) == 1:
			log.Printf("[TOURNAMENT] %s winner: %s", tournamentID, active[0])
			return &NextMatch{Winner: active[0], Finished: true}, nil

		case len(waiting) == 0 && len(active) > 1:
			// Round exhausted; everyone still standing re-enters the pool.
			for _, p := range active {
				b.state[p].waiting = true
			}

		default:
			return nil, ErrCannotProgress
		}
	}

	return nil, ErrCannotProgress
}
