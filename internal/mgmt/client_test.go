package mgmt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"deployconsole/internal/phase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const actionsJSON = `{
  "content": [
    {"id": 12, "type": "update", "status": "pending", "detailStatus": "running", "lastModifiedAt": 1760000000000, "rolloutName": "spring"},
    {"id": 11, "type": "update", "status": "finished", "createdAt": 1750000000000},
    {"id": 10, "type": "cancel", "status": "canceled", "detailStatus": null, "messages": null}
  ],
  "total": 3,
  "size": 3
}`

const statusJSON = `{
  "content": [
    {"id": 2, "type": "running", "messages": ["  ", "Disabling service recovery"], "reportedAt": 2},
    {"id": 1, "type": "retrieved", "messages": ["Update Server: Target retrieved update action"], "reportedAt": 1}
  ],
  "total": 2
}`

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", WithHTTPClient(srv.Client()), WithCredentials("acme", "admin", "pw"))
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/rest")
	assert.Error(t, err)
}

func TestListTargetActions(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/targets/dev 1/actions", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "id:DESC", r.URL.Query().Get("sort"))
		assert.Contains(t, r.Header.Get("Accept"), "application/hal+json")

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, `acme\admin`, user)
		assert.Equal(t, "pw", pass)

		_, _ = w.Write([]byte(actionsJSON))
	})

	page, err := c.ListTargetActions(context.Background(), "dev 1", PageRequest{Limit: 25})
	require.NoError(t, err)
	require.Len(t, page.Content, 3)
	assert.Equal(t, 3, page.Total)

	a := page.Content[0]
	assert.Equal(t, int64(12), a.ID)
	assert.Equal(t, "spring", a.RolloutName)
	assert.Equal(t, time.UnixMilli(1760000000000), a.LastModifiedAt.Time())
	assert.Equal(t, phase.Snapshot{RawStatus: "pending", DetailText: "running"}, a.Snapshot())
	assert.Equal(t, phase.Snapshot{RawStatus: "canceled"}, page.Content[2].Snapshot())
}

func TestActionMessages(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/targets/dev-1/actions/12/status", r.URL.Path)
		assert.Equal(t, "reportedAt:DESC", r.URL.Query().Get("sort"))
		_, _ = w.Write([]byte(statusJSON))
	})

	msgs, err := c.ActionMessages(context.Background(), "dev-1", 12, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Update Server: Target retrieved update action",
		"Disabling service recovery",
	}, msgs)
}

func TestActionMessages_LimitKeepsNewest(t *testing.T) {
	type entry struct {
		ID         int64    `json:"id"`
		Messages   []string `json:"messages"`
		ReportedAt int64    `json:"reportedAt"`
	}
	var history []entry
	for i := 1; i <= 5; i++ {
		history = append(history, entry{ID: int64(i), Messages: []string{fmt.Sprintf("step %d", i)}, ReportedAt: int64(i)})
	}

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := slices.Clone(history)
		if q.Get("sort") == "reportedAt:DESC" {
			slices.Reverse(page)
		}
		if n, err := strconv.Atoi(q.Get("limit")); err == nil && n < len(page) {
			page = page[:n]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": page, "total": len(history)})
	})

	msgs, err := c.ActionMessages(context.Background(), "dev-1", 12, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"step 4", "step 5"}, msgs)
	assert.Equal(t, "step 5", phase.DisplayDetail(phase.Snapshot{Messages: msgs}))
}

func TestActionMessages_NoContent(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":0}`))
	})
	msgs, err := c.ActionMessages(context.Background(), "dev-1", 1, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestGetTargetAction(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/targets/dev-1/actions/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":7,"status":"running","messages":["a","b"]}`))
	})
	a, err := c.GetTargetAction(context.Background(), "dev-1", 7)
	require.NoError(t, err)
	assert.Equal(t, "b", phase.Resolve(a.Snapshot()).DisplayDetail)
}

func TestListRollouts(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rollouts", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"content":[{"id":1,"name":"spring","status":"running","totalTargets":40}],"total":1}`))
	})
	page, err := c.ListRollouts(context.Background(), PageRequest{Offset: 10})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, phase.Running, phase.Resolve(page.Content[0].Snapshot()).Phase)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"not found", http.StatusNotFound, ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"message":"nope"}`, tt.status)
			})
			_, err := c.GetTargetAction(context.Background(), "dev-1", 1)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Contains(t, apiErr.Error(), "nope")
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			} else {
				assert.NotErrorIs(t, err, ErrNotFound)
				assert.NotErrorIs(t, err, ErrUnauthorized)
			}
		})
	}
}

func TestDecodeError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	_, err := c.ListRollouts(context.Background(), PageRequest{})
	assert.ErrorContains(t, err, "decode /rollouts")
}

func TestActionsFetcher(t *testing.T) {
	var statusCalls atomic.Int32
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/targets/dev-1/actions":
			_, _ = w.Write([]byte(actionsJSON))
		case "/rest/v1/targets/dev-1/actions/12/status":
			statusCalls.Add(1)
			_, _ = w.Write([]byte(statusJSON))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	f := &ActionsFetcher{Client: c, TargetID: "dev-1", Limit: 10, WithMessages: true}
	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Only the in-flight action needs its history.
	assert.Equal(t, int32(1), statusCalls.Load())
	assert.Equal(t, "12", items[0].Key)
	assert.Equal(t, "#12 update (spring)", items[0].Title)

	res := phase.Resolve(items[0].Snapshot)
	assert.Equal(t, phase.Running, res.Phase)
	assert.Equal(t, "Disabling service recovery", res.Tooltips[1])
	assert.Equal(t, phase.Finished, phase.Resolve(items[1].Snapshot).Phase)
	assert.Equal(t, phase.Error, phase.Resolve(items[2].Snapshot).Phase)
}

func TestActionsFetcher_HistoryFailureKeepsActions(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/v1/targets/dev-1/actions" {
			_, _ = w.Write([]byte(actionsJSON))
			return
		}
		http.NotFound(w, r)
	})

	f := &ActionsFetcher{Client: c, TargetID: "dev-1", WithMessages: true}
	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	res := phase.Resolve(items[0].Snapshot)
	assert.Empty(t, items[0].Snapshot.Messages)
	assert.Equal(t, "running", res.DisplayDetail)
	assert.Equal(t, phase.Running, res.Phase)
}

func TestActionsFetcher_ListFailureFails(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	f := &ActionsFetcher{Client: c, TargetID: "dev-1", WithMessages: true}
	items, err := f.Fetch(context.Background())
	assert.ErrorContains(t, err, "list actions of dev-1")
	assert.Nil(t, items)
}

func TestActionFetcher(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/targets/dev-1/actions/12":
			_, _ = w.Write([]byte(`{"id":12,"type":"update","status":"running","detailStatus":"running"}`))
		case "/rest/v1/targets/dev-1/actions/12/status":
			_, _ = w.Write([]byte(statusJSON))
		default:
			http.NotFound(w, r)
		}
	})

	f := &ActionFetcher{Client: c, TargetID: "dev-1", ActionID: 12, WithMessages: true}
	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "#12 update", items[0].Title)
	assert.Equal(t, "Disabling service recovery", phase.Resolve(items[0].Snapshot).DisplayDetail)

	_, err = (&ActionFetcher{Client: c, TargetID: "dev-1", ActionID: 99}).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRolloutsFetcher(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"id":3,"name":"fall","status":"finished","totalTargets":2}]}`))
	})
	items, err := (&RolloutsFetcher{Client: c}).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fall (2 targets)", items[0].Title)
}
