// Package metrics queries the infrastructure-metrics collaborator for the
// measurements sampled around an anomaly. Every field is independently
// optional; a partial answer is still an answer.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/tracepulse/backend/internal/clients/httpclient"
	"github.com/tracepulse/backend/internal/shared/types"
)

// Client fetches point-in-time infra metrics for a service.
type Client struct {
	http *httpclient.Client
}

// New creates a metrics source client.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: httpclient.New(httpclient.Options{
			Name:    "metrics-source",
			BaseURL: baseURL,
			Timeout: timeout,
		}),
	}
}

// FetchServiceMetrics returns the infra metrics for service at ts.
func (c *Client) FetchServiceMetrics(ctx context.Context, service string, ts time.Time) (types.InfraMetrics, error) {
	var out types.InfraMetrics

	err := c.http.Do(ctx, func() error {
		resp, err := c.http.Resty.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"service": service,
				"at":      ts.UTC().Format(time.RFC3339),
			}).
			SetResult(&out).
			Get("/api/v1/service-metrics")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("metrics source returned %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		return types.InfraMetrics{}, fmt.Errorf("fetch service metrics: %w", err)
	}

	return out, nil
}
