package tvmaze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned for 404 responses
var ErrNotFound = errors.New("tvmaze: not found")

// APIError is a non-2xx response from the catalog
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error: status code %d - %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: status code %d", e.StatusCode)
}

// Client represents a TVMaze API client
type Client struct {
	httpClient    *http.Client
	baseURL       string
	requestTicker *time.Ticker
	requestChan   chan struct{}
	done          chan struct{}
	closeOnce     sync.Once
	cache         Cache
	cacheTTL      time.Duration
}

// Cache is the subset of a byte cache the client uses for detail lookups
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// New creates a new TVMaze API client with rate limiting
func New(baseURL string, requestsPerMinute int, timeout time.Duration) *Client {
	if requestsPerMinute < 2 {
		requestsPerMinute = 2
	}

	// Calculate interval between requests
	interval := time.Minute / time.Duration(requestsPerMinute-1)

	log.Info().
		Int("requests_per_minute", requestsPerMinute).
		Dur("request_interval", interval).
		Str("base_url", baseURL).
		Msg("Initializing TVMaze API client")

	ticker := time.NewTicker(interval)

	// Buffer of 1 allows one immediate request
	requestChan := make(chan struct{}, 1)
	requestChan <- struct{}{}

	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case requestChan <- struct{}{}:
				default:
					// Buffer full, skip this token
				}
			}
		}
	}()

	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		requestTicker: ticker,
		requestChan:   requestChan,
		done:          done,
	}
}

// WithCache enables caching of show detail responses
func (c *Client) WithCache(cache Cache, ttl time.Duration) *Client {
	c.cache = cache
	c.cacheTTL = ttl
	return c
}

// request waits for a rate limit token and performs a GET
func (c *Client) request(ctx context.Context, endpoint string) ([]byte, error) {
	requestID := fmt.Sprintf("req_%d", time.Now().UnixNano())
	startTime := time.Now()

	url := c.baseURL + endpoint

	select {
	case <-c.requestChan:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	waitDuration := time.Since(startTime)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	execStart := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().
			Str("request_id", requestID).
			Err(err).
			Str("url", url).
			Dur("wait_duration", waitDuration).
			Dur("exec_duration", time.Since(execStart)).
			Msg("Error executing request")
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	readStart := time.Now()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		log.Debug().
			Str("request_id", requestID).
			Str("url", url).
			Msg("API returned not found")
		return nil, ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		log.Error().
			Str("request_id", requestID).
			Err(apiErr).
			Str("url", url).
			Int("status_code", resp.StatusCode).
			Int("response_size", len(respBody)).
			Dur("total_duration", time.Since(startTime)).
			Msg("API returned error response")
		return nil, apiErr
	}

	log.Debug().
		Str("request_id", requestID).
		Str("url", url).
		Int("status_code", resp.StatusCode).
		Int("response_size", len(respBody)).
		Dur("wait_duration", waitDuration).
		Dur("exec_duration", readStart.Sub(execStart)).
		Dur("read_duration", time.Since(readStart)).
		Dur("total_duration", time.Since(startTime)).
		Msg("API request completed successfully")

	return respBody, nil
}

// parseAPIError extracts error information from the API response
func parseAPIError(statusCode int, respBody []byte) error {
	var errResp struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
		return &APIError{StatusCode: statusCode, Message: errResp.Message}
	}

	return &APIError{StatusCode: statusCode}
}

// Close stops the ticker and its token goroutine. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.requestTicker == nil {
			return
		}
		log.Info().Msg("Shutting down TVMaze API client")
		c.requestTicker.Stop()
		close(c.done)
	})
}
