// Package mgmt is a read-only client for the deployment management REST API.
package mgmt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"deployconsole/internal/jsonutil"
	"deployconsole/internal/log"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const apiPrefix = "/rest/v1"

// Client talks to one management server.
type Client struct {
	baseURL  *url.URL
	username string
	password string
	http     *http.Client
	logger   zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default traced HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithCredentials sets basic-auth credentials. A non-empty tenant is
// prefixed as "TENANT\user".
func WithCredentials(tenant, username, password string) Option {
	return func(cl *Client) {
		if username == "" {
			return
		}
		if tenant != "" {
			username = tenant + `\` + username
		}
		cl.username = username
		cl.password = password
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: log.WithComponent("mgmt"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListTargetActions lists the actions of a target, newest first unless
// req.Sort says otherwise.
func (c *Client) ListTargetActions(ctx context.Context, targetID string, req PageRequest) (Page[Action], error) {
	if req.Sort == "" {
		req.Sort = "id:DESC"
	}
	var page Page[Action]
	err := c.get(ctx, "/targets/"+url.PathEscape(targetID)+"/actions", req.values(), &page)
	return page, err
}

// GetTargetAction fetches a single action.
func (c *Client) GetTargetAction(ctx context.Context, targetID string, actionID int64) (Action, error) {
	var a Action
	path := fmt.Sprintf("/targets/%s/actions/%d", url.PathEscape(targetID), actionID)
	err := c.get(ctx, path, nil, &a)
	return a, err
}

// ActionMessages returns the action's progress messages, oldest first,
// flattened across the newest limit status entries.
func (c *Client) ActionMessages(ctx context.Context, targetID string, actionID int64, limit int) ([]string, error) {
	// Page newest first so a limit keeps the latest entries.
	req := PageRequest{Limit: limit, Sort: "reportedAt:DESC"}
	var page struct {
		Content json.RawMessage `json:"content"`
	}
	path := fmt.Sprintf("/targets/%s/actions/%d/status", url.PathEscape(targetID), actionID)
	if err := c.get(ctx, path, req.values(), &page); err != nil {
		return nil, err
	}
	if len(page.Content) == 0 {
		return []string{}, nil
	}
	statuses, err := jsonutil.UnmarshalArrayAllowEmpty[ActionStatus](page.Content, "decode action status")
	if err != nil {
		return nil, err
	}
	msgs := []string{}
	for i := len(statuses) - 1; i >= 0; i-- {
		for _, m := range statuses[i].Messages {
			if m = strings.TrimSpace(m); m != "" {
				msgs = append(msgs, m)
			}
		}
	}
	return msgs, nil
}

// ListRollouts lists rollouts.
func (c *Client) ListRollouts(ctx context.Context, req PageRequest) (Page[Rollout], error) {
	var page Page[Rollout]
	err := c.get(ctx, "/rollouts", req.values(), &page)
	return page, err
}

func (r PageRequest) values() url.Values {
	v := url.Values{}
	if r.Offset > 0 {
		v.Set("offset", strconv.Itoa(r.Offset))
	}
	if r.Limit > 0 {
		v.Set("limit", strconv.Itoa(r.Limit))
	}
	if r.Sort != "" {
		v.Set("sort", r.Sort)
	}
	return v
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + apiPrefix + path
	p, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return fmt.Errorf("build path: %w", err)
	}
	u.Path = p
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/hal+json, application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{
			StatusCode: resp.StatusCode,
			Path:       path,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return jsonutil.DecodeBody(resp.Body, out, "decode "+path)
}
