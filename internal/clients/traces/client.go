// Package traces reads historical spans from the distributed tracing backend
// for baseline rebuilds. The live span feed does not pass through here; the
// tracing backend pushes finished spans to the ingestion endpoint.
package traces

import (
	"context"
	"fmt"
	"time"

	"github.com/tracepulse/backend/internal/clients/httpclient"
	"github.com/tracepulse/backend/internal/shared/types"
)

// Client queries the trace source's span search API.
type Client struct {
	http *httpclient.Client
}

// New creates a trace source client.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: httpclient.New(httpclient.Options{
			Name:    "trace-source",
			BaseURL: baseURL,
			Timeout: timeout,
		}),
	}
}

type spansResponse struct {
	Spans []types.Span `json:"spans"`
}

// FetchSpans returns all finished spans in [start, end].
func (c *Client) FetchSpans(ctx context.Context, start, end time.Time) ([]types.Span, error) {
	var out spansResponse

	err := c.http.Do(ctx, func() error {
		resp, err := c.http.Resty.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"start": start.UTC().Format(time.RFC3339),
				"end":   end.UTC().Format(time.RFC3339),
			}).
			SetResult(&out).
			Get("/api/spans")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("trace source returned %s", resp.Status())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch spans: %w", err)
	}

	return out.Spans, nil
}
