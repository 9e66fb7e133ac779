// HTTP client for the upstream field-service management API that owns
// all customer records. The portal only ever reads from it.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// RateLimitError is returned when the server responds with HTTP 429.
type RateLimitError struct {
	Message        string
	ResetTimestamp time.Time // from X-RateLimit-Reset, if present
}

func (r *RateLimitError) Error() string {
	if !r.ResetTimestamp.IsZero() {
		return fmt.Sprintf("rate limit exceeded; retry after %s", r.ResetTimestamp.Format(time.RFC3339))
	}
	return fmt.Sprintf("rate limit exceeded: %s", r.Message)
}

// NotFoundError is returned for 404s on single-resource fetches.
type NotFoundError struct {
	Message string
}

func (n *NotFoundError) Error() string {
	return fmt.Sprintf("not found (404): %s", n.Message)
}

// Client manages communication with the field-service API.
type Client struct {
	BaseURL      *url.URL
	APIKey       string
	HTTPClient   *http.Client
	MaxRetries   int           // how many times to retry on 429
	RetryInitial time.Duration // initial backoff
}

// NewClient initializes a client for the given tenant base URL
// (e.g. "https://api.fieldserve.example/v2/tenant/1234").
// maxRetries and retryInitial define how we handle 429 rate-limits.
func NewClient(baseURL, apiKey string, maxRetries int, retryInitial time.Duration) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %w", err)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryInitial <= 0 {
		retryInitial = 1 * time.Second
	}

	return &Client{
		BaseURL:      parsed,
		APIKey:       apiKey,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		MaxRetries:   maxRetries,
		RetryInitial: retryInitial,
	}, nil
}

// doRequest builds, executes, and parses an HTTP request with minimal
// backoff for 429.
func (c *Client) doRequest(ctx context.Context, method, reqPath string, query url.Values, body any, out any) error {
	var attempt int
	var backoff = c.RetryInitial

	for {
		err := c.doOnce(ctx, method, reqPath, query, body, out)
		if err == nil {
			return nil
		}

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			if attempt < c.MaxRetries {
				attempt++
				time.Sleep(backoff)
				backoff *= 2 // simple exponential
				continue
			}
			return err
		}
		// 404s and other errors are not retried: return immediately
		return err
	}
}

// doOnce performs a single HTTP request attempt (no retries).
func (c *Client) doOnce(ctx context.Context, method, reqPath string, query url.Values, body any, out any) error {
	u := *c.BaseURL
	u.Path = path.Join(c.BaseURL.Path, reqPath)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleHTTPError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) handleHTTPError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(raw, &parsed)
	msg := parsed.Message
	if msg == "" {
		msg = parsed.Error
	}
	if msg == "" {
		msg = string(raw)
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		rl := &RateLimitError{Message: msg}
		if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
			if secs, err := strconv.ParseInt(reset, 10, 64); err == nil {
				rl.ResetTimestamp = time.Unix(secs, 0)
			}
		}
		return rl
	case http.StatusNotFound:
		return &NotFoundError{Message: msg}
	default:
		return fmt.Errorf("field-service API error (%d): %s", resp.StatusCode, msg)
	}
}
