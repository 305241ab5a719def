// Package suggest calls the accessibility-suggestion collaborator. The
// result is purely advisory: failures, timeouts and rate limiting surface
// as errors on this operation alone and never affect the document model.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited reports that the client-side limiter rejected the request.
var ErrRateLimited = errors.New("suggestion service: rate limited")

// Request is the payload sent to the suggestion service.
type Request struct {
	ContentHTML string `json:"contentHTML"`
	Theme       string `json:"theme,omitempty"`
}

// Response is the advisory annotation returned by the service.
type Response struct {
	Suggestions      []string `json:"suggestions"`
	ContrastAnalysis string   `json:"contrastAnalysis"`
}

// Client talks to the accessibility-suggestion service.
type Client struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// New creates a client with a bounded request timeout and a client-side
// rate limiter so rapid editing cannot hammer the advisory service.
func New(endpoint string, timeout time.Duration, perMinute int) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if perMinute <= 0 {
		perMinute = 10
	}
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

// Analyze requests suggestions for the rendered content. Over-limit calls
// fail immediately with ErrRateLimited rather than queueing.
func (c *Client) Analyze(ctx context.Context, req Request) (*Response, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("suggestion service: endpoint not configured")
	}
	if !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("suggestion service: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("suggestion service: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("suggestion service: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("suggestion service: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion service: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("suggestion service: decode response: %w", err)
	}
	return &out, nil
}
