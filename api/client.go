package api

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; DiscoraBot/1.0)"

// CallRecorder receives the outcome of every outbound request.
type CallRecorder interface {
	RecordCall(success bool)
}

// Client is the shared outbound HTTP client: throttled and health-tracked.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	limiter    *rate.Limiter
	health     CallRecorder
}

// NewClient builds a client allowing requestsPerSecond sustained requests.
// health may be nil.
func NewClient(userAgent string, requestsPerSecond float64, health CallRecorder) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(requestsPerSecond))
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		UserAgent:  userAgent,
		limiter:    rate.NewLimiter(limit, burst),
		health:     health,
	}
}

func (c *Client) sendRequest(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	c.record(err == nil && resp.StatusCode < http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) record(success bool) {
	if c.health != nil {
		c.health.RecordCall(success)
	}
}
