package poll

import (
	"time"

	"deployconsole/internal/phase"
)

// Transition records an item whose phase changed between two polls. New
// items have From == To.
type Transition struct {
	Key   string      `json:"key"`
	Title string      `json:"title"`
	From  phase.Phase `json:"from"`
	To    phase.Phase `json:"to"`
	New   bool        `json:"new,omitempty"`
	At    time.Time   `json:"at"`
}

// Diff returns the transitions from prev to next in next's order. Items that
// disappeared are not reported.
func Diff(prev, next []ResolvedItem, at time.Time) []Transition {
	before := make(map[string]phase.Phase, len(prev))
	for _, it := range prev {
		before[it.Key] = it.Resolved.Phase
	}

	var out []Transition
	for _, it := range next {
		to := it.Resolved.Phase
		from, seen := before[it.Key]
		switch {
		case !seen:
			out = append(out, Transition{Key: it.Key, Title: it.Title, From: to, To: to, New: true, At: at})
		case from != to:
			out = append(out, Transition{Key: it.Key, Title: it.Title, From: from, To: to, At: at})
		}
	}
	return out
}
