package poll

import (
	"testing"
	"time"

	"deployconsole/internal/phase"

	"github.com/stretchr/testify/assert"
)

func resolvedItems(kv ...string) []ResolvedItem {
	var items []Item
	for i := 0; i+1 < len(kv); i += 2 {
		items = append(items, Item{Key: kv[i], Title: "t" + kv[i], Snapshot: phase.Snapshot{RawStatus: kv[i+1]}})
	}
	return Resolve(items)
}

func TestDiff(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prev := resolvedItems("1", "scheduled", "2", "running", "3", "finished")
	next := resolvedItems("1", "running", "2", "running", "4", "pending")

	got := Diff(prev, next, at)
	assert.Equal(t, []Transition{
		{Key: "1", Title: "t1", From: phase.Scheduled, To: phase.Running, At: at},
		{Key: "4", Title: "t4", From: phase.Pending, To: phase.Pending, New: true, At: at},
	}, got)
}

func TestDiff_NoChanges(t *testing.T) {
	items := resolvedItems("1", "finished")
	assert.Empty(t, Diff(items, items, time.Now()))
}

func TestDiff_FirstPoll(t *testing.T) {
	got := Diff(nil, resolvedItems("1", "error", "2", "download"), time.Now())
	assert.Len(t, got, 2)
	for _, tr := range got {
		assert.True(t, tr.New)
	}
}
