package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"deployconsole/internal/phase"
	"deployconsole/internal/poll"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct{ n int }

func (c *countingRefresher) Refresh() { c.n++ }

func result(statuses ...string) poll.Result {
	items := make([]poll.Item, len(statuses))
	for i, s := range statuses {
		items[i] = poll.Item{Key: s, Title: "item " + s, Snapshot: phase.Snapshot{RawStatus: s}}
	}
	resolved := poll.Resolve(items)
	return poll.Result{
		Items:     resolved,
		FetchedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Settled:   poll.Settled(resolved),
		Next:      2 * time.Second,
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestTimeline_BeforeFirstPoll(t *testing.T) {
	s := New(nil)
	rec := get(t, s.Handler(), "/api/v1/timeline")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTimeline(t *testing.T) {
	s := New(nil)
	s.Record(result("running", "error"))

	rec := get(t, s.Handler(), "/api/v1/timeline")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body TimelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Settled)
	assert.Equal(t, "2s", body.NextPoll)
	require.Len(t, body.Items, 2)
	assert.Equal(t, phase.Running, body.Items[0].Resolved.Phase)
	assert.Equal(t, [phase.NumSteps]phase.StepState{phase.StepCompleted, phase.StepCompleted, phase.StepError}, body.Items[1].Resolved.Steps)
	assert.Nil(t, body.Items[0].Updated)
}

func TestTimeline_ErrorKeepsLastItems(t *testing.T) {
	s := New(nil)
	s.Record(result("finished"))
	s.Record(poll.Result{Err: errors.New("connection refused"), Next: time.Second})

	var body TimelineResponse
	rec := get(t, s.Handler(), "/api/v1/timeline")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "connection refused", body.Error)
	require.Len(t, body.Items, 1)
	assert.True(t, body.Settled)
}

func TestResolve(t *testing.T) {
	s := New(nil)
	q := url.Values{}
	q.Set("status", "pending")
	q.Set("detail", "ignored")
	q.Add("message", "first")
	q.Add("message", "Disabling service recovery")

	rec := get(t, s.Handler(), "/api/v1/resolve?"+q.Encode())
	require.Equal(t, http.StatusOK, rec.Code)

	var got phase.Resolved
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, phase.Running, got.Phase)
	assert.Equal(t, "Disabling service recovery", got.DisplayDetail)
	assert.Equal(t, "live-detail", got.Rule)
}

func TestResolve_EmptyQueryIsPending(t *testing.T) {
	rec := get(t, New(nil).Handler(), "/api/v1/resolve")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phase":"pending"`)
}

func TestRefresh(t *testing.T) {
	r := &countingRefresher{}
	h := New(r).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, r.n)

	rec = get(t, h, "/api/v1/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRefresh_RateLimited(t *testing.T) {
	h := New(&countingRefresher{}).Handler()
	var last int
	for range 11 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestRefresh_Unavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	New(nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	s := New(nil)
	s.Record(result("running", "running", "finished"))
	s.Record(poll.Result{Err: errors.New("x")})

	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.polls.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.polls.WithLabelValues("failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics.items.WithLabelValues("running")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.Metrics.items.WithLabelValues("error")))

	rec = get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `deployconsole_items{phase="finished"} 1`))
}

func TestTransitions(t *testing.T) {
	s := New(nil)
	h := s.Handler()

	first := result("running")
	s.Record(first)

	second := result("running")
	second.Items[0].Snapshot = phase.Snapshot{RawStatus: "finished"}
	second.Items[0].Resolved = phase.Resolve(second.Items[0].Snapshot)
	second.FetchedAt = first.FetchedAt.Add(2 * time.Second)
	s.Record(second)

	rec := get(t, h, "/api/v1/transitions")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Transitions []poll.Transition `json:"transitions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Transitions, 2)
	assert.Equal(t, phase.Running, body.Transitions[0].From)
	assert.Equal(t, phase.Finished, body.Transitions[0].To)
	assert.True(t, body.Transitions[1].New)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics.changes.WithLabelValues("finished")))
}

func TestStore_HistoryIsBounded(t *testing.T) {
	st := NewStore(3)
	for i := range 5 {
		res := result("running")
		res.Items[0].Key = string(rune('a' + i))
		st.Set(res)
	}
	hist := st.History()
	require.Len(t, hist, 3)
	assert.Equal(t, "e", hist[0].Key)
	assert.Equal(t, "c", hist[2].Key)
}

func TestStore_FailedPollRecordsNoTransitions(t *testing.T) {
	st := NewStore(0)
	st.Set(result("running"))
	failed := poll.Result{Err: errors.New("boom")}
	assert.Empty(t, st.Set(failed))
	assert.Len(t, st.History(), 1)
}
