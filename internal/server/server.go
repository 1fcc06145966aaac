// Package server exposes the latest resolved timelines as JSON for browser
// consumers, plus health and Prometheus endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"deployconsole/internal/log"
	"deployconsole/internal/phase"
	"deployconsole/internal/poll"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Refresher triggers an immediate poll.
type Refresher interface {
	Refresh()
}

// Server serves poll results.
type Server struct {
	Store     *Store
	Metrics   *Metrics
	Refresher Refresher // optional

	logger zerolog.Logger
}

// New returns a server with an empty store.
func New(r Refresher) *Server {
	return &Server{
		Store:     NewStore(DefaultHistory),
		Metrics:   NewMetrics(),
		Refresher: r,
		logger:    log.WithComponent("server"),
	}
}

// Record stores res and updates metrics. It is the poll emit callback.
func (s *Server) Record(res poll.Result) {
	s.Metrics.Observe(res)
	for _, tr := range s.Store.Set(res) {
		if tr.New {
			continue
		}
		s.Metrics.ObserveTransition(tr)
		s.logger.Info().
			Str("key", tr.Key).
			Str("from", tr.From.String()).
			Str("to", tr.To.String()).
			Msg("phase changed")
	}
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/timeline", s.handleTimeline)
		r.Get("/resolve", s.handleResolve)
		r.Get("/transitions", s.handleTransitions)
		r.With(httprate.LimitByIP(10, time.Minute)).Post("/refresh", s.handleRefresh)
	})

	return otelhttp.NewHandler(r, "deployconsole")
}

// TimelineItem is the JSON form of one resolved entity.
type TimelineItem struct {
	Key      string         `json:"key"`
	Title    string         `json:"title"`
	Updated  *time.Time     `json:"updated,omitempty"`
	Snapshot phase.Snapshot `json:"snapshot"`
	Resolved phase.Resolved `json:"resolved"`
}

// TimelineResponse is the body of GET /api/v1/timeline.
type TimelineResponse struct {
	FetchedAt time.Time      `json:"fetchedAt"`
	Settled   bool           `json:"settled"`
	NextPoll  string         `json:"nextPoll,omitempty"`
	Error     string         `json:"error,omitempty"`
	Items     []TimelineItem `json:"items"`
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	res, ok := s.Store.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no poll completed yet"})
		return
	}
	body := TimelineResponse{
		FetchedAt: res.FetchedAt,
		Settled:   res.Settled,
		Items:     make([]TimelineItem, 0, len(res.Items)),
	}
	if res.Next > 0 {
		body.NextPoll = res.Next.String()
	}
	if res.Err != nil {
		body.Error = res.Err.Error()
	}
	for _, it := range res.Items {
		ti := TimelineItem{Key: it.Key, Title: it.Title, Snapshot: it.Snapshot, Resolved: it.Resolved}
		if !it.Updated.IsZero() {
			u := it.Updated
			ti.Updated = &u
		}
		body.Items = append(body.Items, ti)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleTransitions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]poll.Transition{"transitions": s.Store.History()})
}

// handleResolve classifies an ad-hoc snapshot from query parameters.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	snap := phase.Snapshot{
		RawStatus:  q.Get("status"),
		DetailText: q.Get("detail"),
		Messages:   q["message"],
	}
	writeJSON(w, http.StatusOK, phase.Resolve(snap))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.Refresher == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "refresh not available"})
		return
	}
	s.Refresher.Refresh()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
