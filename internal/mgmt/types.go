package mgmt

import (
	"time"

	"deployconsole/internal/phase"
)

// Page is one page of a paged list response.
type Page[T any] struct {
	Content []T `json:"content"`
	Total   int `json:"total"`
	Size    int `json:"size"`
}

// PageRequest selects a page.
type PageRequest struct {
	Offset int
	Limit  int
	Sort   string
}

// Action is a deployment job for one target.
type Action struct {
	ID             int64    `json:"id"`
	Type           string   `json:"type"`
	Status         string   `json:"status"`
	DetailStatus   string   `json:"detailStatus,omitempty"`
	Messages       []string `json:"messages,omitempty"`
	ForceType      string   `json:"forceType,omitempty"`
	CreatedAt      Millis   `json:"createdAt"`
	LastModifiedAt Millis   `json:"lastModifiedAt"`
	Rollout        int64    `json:"rollout,omitempty"`
	RolloutName    string   `json:"rolloutName,omitempty"`
}

// Snapshot maps the action's status fields onto the resolver input.
func (a Action) Snapshot() phase.Snapshot {
	return phase.Snapshot{
		RawStatus:  a.Status,
		DetailText: a.DetailStatus,
		Messages:   a.Messages,
	}
}

// ActionStatus is one entry of an action's status history.
type ActionStatus struct {
	ID         int64    `json:"id"`
	Type       string   `json:"type"`
	Messages   []string `json:"messages"`
	ReportedAt Millis   `json:"reportedAt"`
}

// Rollout is a staged deployment across target groups.
type Rollout struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Status       string `json:"status"`
	TotalTargets int64  `json:"totalTargets"`
	CreatedAt    Millis `json:"createdAt"`
}

// Snapshot maps the rollout status onto the resolver input. Rollouts carry
// no progress text.
func (r Rollout) Snapshot() phase.Snapshot {
	return phase.Snapshot{RawStatus: r.Status}
}

// Millis is a server timestamp in epoch milliseconds.
type Millis int64

// Time converts m to a time.Time; zero stays zero.
func (m Millis) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m))
}
