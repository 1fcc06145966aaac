package server

import (
	"sync"

	"deployconsole/internal/poll"
)

// DefaultHistory is the number of transitions kept when none is configured.
const DefaultHistory = 200

// Store keeps the latest poll result and a bounded log of phase
// transitions for HTTP readers.
type Store struct {
	mu      sync.RWMutex
	latest  poll.Result
	ok      bool
	history []poll.Transition // oldest first, at most maxHist
	maxHist int
}

// NewStore creates a store that keeps up to maxHistory transitions.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultHistory
	}
	return &Store{maxHist: maxHistory}
}

// Set replaces the stored result and returns the transitions it caused. A
// failed poll keeps the previous items so readers still see the last known
// state alongside the error.
func (s *Store) Set(res poll.Result) []poll.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changes []poll.Transition
	if res.Err != nil && s.ok {
		prev := s.latest.Items
		res.Items = prev
		res.Settled = poll.Settled(prev)
	} else if res.Err == nil {
		changes = poll.Diff(s.latest.Items, res.Items, res.FetchedAt)
		s.appendHistory(changes)
	}
	s.latest = res
	s.ok = true
	return changes
}

func (s *Store) appendHistory(changes []poll.Transition) {
	if s.maxHist <= 0 {
		s.maxHist = DefaultHistory
	}
	s.history = append(s.history, changes...)
	if over := len(s.history) - s.maxHist; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// Latest returns the stored result and whether any poll has completed.
func (s *Store) Latest() (poll.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.ok
}

// History returns a copy of the recorded transitions, newest first.
func (s *Store) History() []poll.Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]poll.Transition, len(s.history))
	for i, tr := range s.history {
		out[len(out)-1-i] = tr
	}
	return out
}
