package simulate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/timeattack/internal/adapters/repository"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/types"
	"github.com/okian/timeattack/pkg/logger"
)

// Client reads the ops API of a running service.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a client for baseURL with a request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Health succeeds when /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil)
}

// ActiveEvent returns the served active event id.
func (c *Client) ActiveEvent(ctx context.Context) (model.EventID, error) {
	var cur repository.ActiveEvent
	if err := c.get(ctx, "/event", &cur); err != nil {
		return model.EventID{}, err
	}
	return cur.EventID, nil
}

// Leaderboard returns the served leaderboard of id.
func (c *Client) Leaderboard(ctx context.Context, id model.EventID) (model.Leaderboard, error) {
	var view types.LeaderboardView
	if err := c.get(ctx, "/leaderboard?event="+url.QueryEscape(id.String()), &view); err != nil {
		return nil, err
	}
	return view.Entries, nil
}

// get fetches path and decodes a JSON body into out when out is non-nil.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
