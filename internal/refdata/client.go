// Package refdata fetches the airline and airport reference lists from the
// aviation data API.
package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/pkg/logger"
)

// ErrUnexpectedStatus is returned when the API answers with a non-2xx status
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Kind names a reference list endpoint
type Kind string

const (
	Airlines Kind = "airlines"
	Airports Kind = "airports"
)

// ParseKind validates a reference list name
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Airlines, Airports:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown reference list %q", s)
}

// Client handles HTTP requests to the reference data API
type Client struct {
	config     config.ReferenceConfig
	httpClient *http.Client
	backoff    time.Duration
	logger     *logger.Logger
}

// NewClient creates a new reference data API client
func NewClient(cfg config.ReferenceConfig, log *logger.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		backoff: 500 * time.Millisecond,
		logger:  log.Named("refdata"),
	}
}

// FetchAirlines fetches the airline list
func (c *Client) FetchAirlines(ctx context.Context) (any, error) {
	return c.Fetch(ctx, Airlines)
}

// FetchAirports fetches the airport list
func (c *Client) FetchAirports(ctx context.Context) (any, error) {
	return c.Fetch(ctx, Airports)
}

// Fetch GETs <base>/<kind>?access_key=... and returns the decoded JSON document as-is
func (c *Client) Fetch(ctx context.Context, kind Kind) (any, error) {
	endpoint, err := url.JoinPath(c.config.BaseURL, string(kind))
	if err != nil {
		return nil, fmt.Errorf("invalid reference base URL: %w", err)
	}
	query := url.Values{}
	query.Set("access_key", c.config.AccessKey)
	endpoint += "?" + query.Encode()

	var data any
	if err := c.fetchWithRetry(ctx, endpoint, kind, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", kind, err)
	}
	return data, nil
}

// fetchWithRetry performs the request, retrying with exponential backoff only when max_retries > 0
func (c *Client) fetchWithRetry(ctx context.Context, endpoint string, kind Kind, target any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := c.backoff * time.Duration(1<<uint(attempt-1))
			c.logger.Info("Retrying reference data fetch",
				logger.String("kind", string(kind)),
				logger.Int("attempt", attempt),
				logger.String("backoff", backoffDuration.String()))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		lastErr = c.fetchOnce(ctx, endpoint, target)
		if lastErr == nil {
			if attempt > 0 {
				c.logger.Info("Fetched reference data after retries",
					logger.String("kind", string(kind)),
					logger.Int("attempts_needed", attempt+1))
			}
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		c.logger.Warn("Reference data request failed",
			logger.String("kind", string(kind)),
			logger.Error(lastErr),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", c.config.MaxRetries+1))
	}

	return lastErr
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error making request to reference API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding reference data: %w", err)
	}
	return nil
}
