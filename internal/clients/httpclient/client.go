// Package httpclient wraps resty with retries, rate limiting, and a circuit
// breaker. All three external collaborators (trace source, metrics source,
// LLM endpoint) build on it.
package httpclient

import (
	"context"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/tracepulse/backend/internal/infrastructure/resilience"
)

// Client wraps resty with rate limiting and a circuit breaker.
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Breaker *resilience.Breaker
	mu      sync.RWMutex
}

// Options configures a collaborator client.
type Options struct {
	Name    string
	BaseURL string
	Timeout time.Duration
	// Retries on transient failures; collaborator unavailability is expected
	// and handled by callers, so the count stays low.
	Retries int
}

// New creates a collaborator HTTP client with retry transport and breaker.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Retries == 0 {
		opts.Retries = 2
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "TracePulse/1.0")

	breaker := resilience.New(opts.Name, resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		Resty:   restyClient,
		Limiter: rate.NewLimiter(rate.Inf, 0),
		Breaker: breaker,
	}
}

// Do runs req through the rate limiter and circuit breaker.
func (c *Client) Do(ctx context.Context, req func() error) error {
	if err := c.Limiter.Wait(ctx); err != nil {
		return err
	}
	return c.Breaker.Execute(req)
}

// SetRateLimit caps outbound request rate.
func (c *Client) SetRateLimit(rps float64, burst int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
}
