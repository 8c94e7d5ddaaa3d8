// Package ingest posts the per-company fundamental payloads to the Moniitor
// analytics ingestion API.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cvm-dfp-bot/internal/api"
	"cvm-dfp-bot/internal/logger"
)

// DefaultURL is the ingestion endpoint used when the configuration does not
// override it.
const DefaultURL = "https://xlmvqhjwliamckyxlpfi.supabase.co/functions/v1/ingest-fundamental-data"

// ErrMissingAPIKey indicates the client was constructed without credentials.
var ErrMissingAPIKey = errors.New("ingest: MONIITOR_API_KEY not configured")

// Result is the API's answer, or the terminal error condition when no
// successful answer was obtained.
type Result struct {
	Processed int            `json:"processed,omitempty"`
	Error     string         `json:"error,omitempty"`
	Status    int            `json:"status,omitempty"`
	Raw       map[string]any `json:"-"`
}

// Client submits fundamental-data payloads, retrying transient failures.
type Client struct {
	api     *api.Client
	url     string
	apiKey  string
	retries int
}

// Option configures the client.
type Option func(*Client)

// WithRetries overrides the retry budget for one submission.
func WithRetries(retries int) Option {
	return func(c *Client) {
		c.retries = retries
	}
}

// WithHTTPTimeout overrides the per-attempt timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.api = api.NewClient(api.WithTimeout(timeout), api.WithLogging(true))
	}
}

// NewClient builds an ingestion client for the given endpoint and key.
func NewClient(url, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if url == "" {
		url = DefaultURL
	}
	client := &Client{
		api:     api.NewClient(api.WithTimeout(30*time.Second), api.WithLogging(true)),
		url:     url,
		apiKey:  apiKey,
		retries: 3,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SendSingle submits one payload wrapped in the ingestion envelope.
func (c *Client) SendSingle(ctx context.Context, payload map[string]any) *Result {
	return c.send(ctx, map[string]any{"data": payload})
}

// SendBatch submits a batch of payloads in one envelope.
func (c *Client) SendBatch(ctx context.Context, payloads []map[string]any) *Result {
	return c.send(ctx, map[string]any{"data": payloads})
}

func (c *Client) send(ctx context.Context, body map[string]any) *Result {
	logger.Info(ctx, "Submitting to Moniitor", "url", c.url, "key", maskKey(c.apiKey))

	for attempt := 1; attempt <= c.retries; attempt++ {
		resp, err := c.api.Do(api.NewRequest(http.MethodPost, c.url).
			WithContext(ctx).
			WithBody(body).
			WithHeader("x-api-key", c.apiKey))
		if err != nil {
			logger.Warn(ctx, "Submission attempt failed",
				"attempt", fmt.Sprintf("%d/%d", attempt, c.retries), "error", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			result := &Result{}
			if err := resp.JSON(&result.Raw); err == nil {
				if processed, ok := result.Raw["processed"].(float64); ok {
					result.Processed = int(processed)
				}
			}
			logger.Info(ctx, "Submission accepted", "processed", result.Processed)
			return result

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			logger.Error(ctx, "API key rejected, check MONIITOR_API_KEY")
			return &Result{Error: "Unauthorized", Status: resp.StatusCode}

		case resp.StatusCode == http.StatusBadRequest:
			result := &Result{Error: "Bad Request", Status: resp.StatusCode}
			resp.JSON(&result.Raw)
			logger.Error(ctx, "Payload rejected", "body", string(resp.Body))
			return result

		default:
			logger.Warn(ctx, "Submission attempt failed",
				"attempt", fmt.Sprintf("%d/%d", attempt, c.retries), "status", resp.StatusCode)
		}
	}
	return &Result{Error: "Max retries exceeded", Status: -1}
}

// maskKey keeps only the key's edges in log output.
func maskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
