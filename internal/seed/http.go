package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// headerActor matches the API's actor header.
const headerActor = "X-Actor"

// Client is a rate-limited JSON client for the tournament API.
type Client struct {
	client  *http.Client
	baseURL string
	actor   string
	limiter *rate.Limiter
}

// NewClient creates a client. A zero rps disables rate limiting.
func NewClient(baseURL, actor string, timeout time.Duration, rps float64) *Client {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		actor:   actor,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// As returns a copy of c acting as actor, sharing the rate limiter.
func (c *Client) As(actor string) *Client {
	cp := *c
	cp.actor = actor
	return &cp
}

// Do sends body as JSON and decodes a JSON reply into out when out is not
// nil. It returns the status code; non-2xx codes are not errors.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit: %w", err)
	}

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.actor != "" {
		req.Header.Set(headerActor, c.actor)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if out != nil && len(data) > 0 && resp.StatusCode < http.StatusInternalServerError {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
