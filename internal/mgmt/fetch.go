package mgmt

import (
	"context"
	"fmt"
	"strconv"

	"deployconsole/internal/phase"
	"deployconsole/internal/poll"

	"golang.org/x/sync/errgroup"
)

// maxMessageFetches bounds concurrent status-history requests per poll.
const maxMessageFetches = 4

// ActionsFetcher polls the newest actions of one target. For actions that
// are still in flight it also loads the status history, so the timeline can
// show the latest progress message. A failed history load leaves that action
// with its listed detail status.
type ActionsFetcher struct {
	Client       *Client
	TargetID     string
	Limit        int
	WithMessages bool
	MessageLimit int
}

var _ poll.Fetcher = (*ActionsFetcher)(nil)

// Fetch implements poll.Fetcher.
func (f *ActionsFetcher) Fetch(ctx context.Context) ([]poll.Item, error) {
	page, err := f.Client.ListTargetActions(ctx, f.TargetID, PageRequest{Limit: f.Limit})
	if err != nil {
		return nil, fmt.Errorf("list actions of %s: %w", f.TargetID, err)
	}
	actions := page.Content

	if f.WithMessages {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxMessageFetches)
		for i := range actions {
			if phase.Resolve(actions[i].Snapshot()).Phase.Terminal() {
				continue
			}
			g.Go(func() error {
				f.Client.loadMessages(gctx, f.TargetID, &actions[i], f.MessageLimit)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	items := make([]poll.Item, len(actions))
	for i, a := range actions {
		items[i] = actionItem(a)
	}
	return items, nil
}

// ActionFetcher polls a single action of one target.
type ActionFetcher struct {
	Client       *Client
	TargetID     string
	ActionID     int64
	WithMessages bool
	MessageLimit int
}

var _ poll.Fetcher = (*ActionFetcher)(nil)

// Fetch implements poll.Fetcher.
func (f *ActionFetcher) Fetch(ctx context.Context) ([]poll.Item, error) {
	a, err := f.Client.GetTargetAction(ctx, f.TargetID, f.ActionID)
	if err != nil {
		return nil, fmt.Errorf("get action %d of %s: %w", f.ActionID, f.TargetID, err)
	}
	if f.WithMessages && !phase.Resolve(a.Snapshot()).Phase.Terminal() {
		f.Client.loadMessages(ctx, f.TargetID, &a, f.MessageLimit)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return []poll.Item{actionItem(a)}, nil
}

// loadMessages fills a.Messages from the status history. History only
// refines the detail text, so a failure is logged and a is left as listed.
func (c *Client) loadMessages(ctx context.Context, targetID string, a *Action, limit int) {
	msgs, err := c.ActionMessages(ctx, targetID, a.ID, limit)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn().
				Err(err).
				Str("target", targetID).
				Int64("action", a.ID).
				Msg("load action messages")
		}
		return
	}
	if len(msgs) > 0 {
		a.Messages = msgs
	}
}

func actionItem(a Action) poll.Item {
	return poll.Item{
		Key:      strconv.FormatInt(a.ID, 10),
		Title:    actionTitle(a),
		Updated:  a.LastModifiedAt.Time(),
		Snapshot: a.Snapshot(),
	}
}

func actionTitle(a Action) string {
	title := fmt.Sprintf("#%d %s", a.ID, a.Type)
	if a.RolloutName != "" {
		title += " (" + a.RolloutName + ")"
	}
	return title
}

// RolloutsFetcher polls the rollout list.
type RolloutsFetcher struct {
	Client *Client
	Limit  int
}

var _ poll.Fetcher = (*RolloutsFetcher)(nil)

// Fetch implements poll.Fetcher.
func (f *RolloutsFetcher) Fetch(ctx context.Context) ([]poll.Item, error) {
	page, err := f.Client.ListRollouts(ctx, PageRequest{Limit: f.Limit, Sort: "id:DESC"})
	if err != nil {
		return nil, fmt.Errorf("list rollouts: %w", err)
	}
	items := make([]poll.Item, len(page.Content))
	for i, r := range page.Content {
		items[i] = poll.Item{
			Key:      strconv.FormatInt(r.ID, 10),
			Title:    fmt.Sprintf("%s (%d targets)", r.Name, r.TotalTargets),
			Updated:  r.CreatedAt.Time(),
			Snapshot: r.Snapshot(),
		}
	}
	return items, nil
}
