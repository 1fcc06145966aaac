// Package poll re-fetches entity status on an adaptive cadence: short while
// anything is still moving, long (or stopped) once everything has settled.
//
// A Scheduler is built explicitly and handed to whatever displays its
// results; it holds no package-level state.
package poll

import (
	"context"
	"time"

	"deployconsole/internal/log"
	"deployconsole/internal/phase"
	"deployconsole/internal/telemetry"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Item is one entity as returned by a Fetcher.
type Item struct {
	Key      string
	Title    string
	Updated  time.Time
	Snapshot phase.Snapshot
}

// ResolvedItem pairs an Item with its resolved display state.
type ResolvedItem struct {
	Item
	Resolved phase.Resolved
}

// Fetcher loads the current snapshot of every tracked entity.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]Item, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context) ([]Item, error) { return f(ctx) }

// Result is the outcome of one poll.
type Result struct {
	Items     []ResolvedItem
	Err       error
	FetchedAt time.Time
	Settled   bool          // every item is Finished or Error
	Next      time.Duration // wait before the next poll; 0 when polling stopped
}

// Counts tallies items per phase.
func (r Result) Counts() map[phase.Phase]int {
	out := make(map[phase.Phase]int)
	for _, it := range r.Items {
		out[it.Resolved.Phase]++
	}
	return out
}

// Policy picks the poll cadence.
type Policy struct {
	Active          time.Duration // while any item is non-terminal, and after errors
	Idle            time.Duration // once every item is terminal
	StopWhenSettled bool
}

// DefaultPolicy polls every 2s while work is in flight and every 15s otherwise.
var DefaultPolicy = Policy{Active: 2 * time.Second, Idle: 15 * time.Second}

// NextInterval returns the wait after a poll that ended with res, or 0 when
// polling should stop.
func (p Policy) NextInterval(res Result) time.Duration {
	if res.Err != nil {
		return p.active()
	}
	if !res.Settled {
		return p.active()
	}
	if p.StopWhenSettled {
		return 0
	}
	if p.Idle <= 0 {
		return DefaultPolicy.Idle
	}
	return p.Idle
}

func (p Policy) active() time.Duration {
	if p.Active <= 0 {
		return DefaultPolicy.Active
	}
	return p.Active
}

// Settled reports whether every item has reached a terminal phase. An empty
// list counts as settled.
func Settled(items []ResolvedItem) bool {
	for _, it := range items {
		if !it.Resolved.Phase.Terminal() {
			return false
		}
	}
	return true
}

// Resolve classifies every fetched item.
func Resolve(items []Item) []ResolvedItem {
	out := make([]ResolvedItem, len(items))
	for i, it := range items {
		out[i] = ResolvedItem{Item: it, Resolved: phase.Resolve(it.Snapshot)}
	}
	return out
}

// Clock abstracts timers for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler runs the poll loop for one Fetcher.
type Scheduler struct {
	fetcher Fetcher
	policy  Policy
	clock   Clock
	logger  zerolog.Logger
	refresh chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler returns a scheduler polling f according to p.
func NewScheduler(f Fetcher, p Policy, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher: f,
		policy:  p,
		clock:   realClock{},
		logger:  log.WithComponent("poll"),
		refresh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh asks a running loop to poll now. It never blocks; extra requests
// while one is pending are dropped.
func (s *Scheduler) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Once performs a single poll.
func (s *Scheduler) Once(ctx context.Context) Result {
	ctx, span := telemetry.Tracer().Start(ctx, "poll.fetch")
	defer span.End()

	items, err := s.fetcher.Fetch(ctx)
	res := Result{FetchedAt: s.clock.Now(), Err: err}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).Msg("fetch failed")
	} else {
		res.Items = Resolve(items)
		res.Settled = Settled(res.Items)
	}
	res.Next = s.policy.NextInterval(res)

	span.SetAttributes(
		attribute.Int("poll.items", len(res.Items)),
		attribute.Bool("poll.settled", res.Settled),
	)
	s.logger.Debug().
		Int("items", len(res.Items)).
		Bool("settled", res.Settled).
		Dur("next", res.Next).
		Msg("poll complete")
	return res
}

// Run polls until ctx is cancelled or the policy stops polling, passing
// every result to emit. It returns ctx.Err() on cancellation and nil when
// polling stopped because everything settled.
func (s *Scheduler) Run(ctx context.Context, emit func(Result)) error {
	for {
		res := s.Once(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		emit(res)
		if res.Next == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(res.Next):
		case <-s.refresh:
		}
	}
}
