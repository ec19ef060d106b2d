// Package llm talks to the inference endpoint. Two modes: Complete buffers
// the whole response, Stream invokes a callback per generated fragment and
// returns the assembled text. Both run to completion once started; there is
// no mid-stream cancellation contract beyond the request context.
package llm

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tracepulse/backend/internal/clients/httpclient"
	"github.com/tracepulse/backend/internal/infrastructure/monitoring"
)

// TokenFunc receives one generated text fragment. Returning an error aborts
// delivery but not generation accounting; the assembled text is still built
// from everything received so far.
type TokenFunc func(fragment string) error

// Client is the inference endpoint client.
type Client struct {
	http    *httpclient.Client
	model   string
	metrics *monitoring.Metrics
}

// New creates an LLM client for the configured endpoint and model.
func New(baseURL, model string, timeout time.Duration, metrics *monitoring.Metrics) *Client {
	return &Client{
		http: httpclient.New(httpclient.Options{
			Name:    "llm",
			BaseURL: baseURL,
			Timeout: timeout,
			Retries: 1,
		}),
		model:   model,
		metrics: metrics,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete sends prompt and returns the full generated text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	var out generateChunk
	err := c.http.Do(ctx, func() error {
		resp, err := c.http.Resty.R().
			SetContext(ctx).
			SetBody(generateRequest{Model: c.model, Prompt: prompt}).
			SetResult(&out).
			Post("/api/generate")
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("llm endpoint returned %s", resp.Status())
		}
		return nil
	})

	if c.metrics != nil {
		status := "success"
		if err != nil {
			status = "failure"
		}
		c.metrics.RecordLLMCall(status, time.Since(start))
	}
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	return out.Response, nil
}

// Stream sends prompt with streaming enabled, invoking fn for each fragment
// as it arrives, and returns the assembled response.
func (c *Client) Stream(ctx context.Context, prompt string, fn func(fragment string) error) (string, error) {
	start := time.Now()
	full, err := c.stream(ctx, prompt, fn)

	if c.metrics != nil {
		status := "success"
		if err != nil {
			status = "failure"
		}
		c.metrics.RecordLLMCall(status, time.Since(start))
	}
	if err != nil {
		return full, fmt.Errorf("llm stream: %w", err)
	}
	return full, nil
}

func (c *Client) stream(ctx context.Context, prompt string, fn TokenFunc) (string, error) {
	var assembled string

	err := c.http.Do(ctx, func() error {
		resp, err := c.http.Resty.R().
			SetContext(ctx).
			SetBody(generateRequest{Model: c.model, Prompt: prompt, Stream: true}).
			SetDoNotParseResponse(true).
			Post("/api/generate")
		if err != nil {
			return err
		}
		body := resp.RawBody()
		defer body.Close()

		if resp.IsError() {
			return fmt.Errorf("llm endpoint returned %s", resp.Status())
		}

		// Line-delimited JSON chunks until done.
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var chunk generateChunk
			if err := sonic.Unmarshal(line, &chunk); err != nil {
				return fmt.Errorf("decode stream chunk: %w", err)
			}
			if chunk.Response != "" {
				assembled += chunk.Response
				if fn != nil {
					if err := fn(chunk.Response); err != nil {
						return err
					}
				}
			}
			if chunk.Done {
				return nil
			}
		}
		return scanner.Err()
	})

	return assembled, err
}
