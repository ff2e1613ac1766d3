package stegapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.steg.ai"

// maxErrorBody caps how much of an error response is kept in error messages.
const maxErrorBody = 512

// Client provides authenticated access to the Steg.AI API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration

	// Debug callback (optional)
	debugFunc func(format string, args ...any)
}

// ClientConfig holds configuration for the API client.
type ClientConfig struct {
	// BaseURL is the API base URL (default: https://api.steg.ai)
	BaseURL string

	// APIKey is sent in the x-api-key header on every API call (required)
	APIKey string

	// Timeout is the per-request HTTP timeout (default: 30s)
	Timeout time.Duration

	// MaxRetries is how many times a transport failure is retried (default: 3).
	// Negative disables retries.
	MaxRetries int

	// RetryDelay is the delay before the first retry; it doubles on each
	// subsequent retry (default: 500ms)
	RetryDelay time.Duration

	// HTTPClient overrides the underlying HTTP client (optional)
	HTTPClient *http.Client

	// DebugFunc is an optional callback for debug logging
	DebugFunc func(format string, args ...any)
}

// NewClient creates a new API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &AuthError{Message: "API key is required"}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		debugFunc:  cfg.DebugFunc,
	}, nil
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// debug logs a message if debug function is configured
func (c *Client) debug(format string, args ...any) {
	if c.debugFunc != nil {
		c.debugFunc(format, args...)
	}
}

// doJSON calls an API endpoint and returns the decoded response envelope.
// Transport failures are retried with a doubling delay.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body any) (*envelope, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request body: %w", op, err)
		}
		payload = data
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var env *envelope
	err := c.withRetry(ctx, op, func() error {
		var err error
		env, err = c.doOnce(ctx, op, method, endpoint, payload)
		return err
	})
	return env, err
}

func (c *Client) doOnce(ctx context.Context, op, method, endpoint string, payload []byte) (*envelope, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
		c.debug("request: %s %s - body: %s", method, endpoint, string(payload))
	} else {
		c.debug("request: %s %s", method, endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.debug("response: %d - %s", resp.StatusCode, truncate(string(respBody), maxErrorBody))

	if err := classifyStatus(op, resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &ValidationError{Op: op, Field: "response body", Reason: "not a JSON object", Err: err}
	}
	return &env, nil
}

// classifyStatus maps a non-2xx HTTP status to the client's error taxonomy.
func classifyStatus(op string, code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{StatusCode: code, Message: serverMessage(body)}
	case code == http.StatusTooManyRequests || code >= 500:
		return &TransportError{Op: op, StatusCode: code, Body: truncate(string(body), maxErrorBody)}
	default:
		return &RequestError{Op: op, StatusCode: code, Message: serverMessage(body)}
	}
}

// serverMessage extracts the "message" field of an error body, falling back
// to the raw body.
func serverMessage(body []byte) string {
	var env struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Message != nil {
		if s, ok := env.Message.(string); ok {
			return s
		}
		return fmt.Sprint(env.Message)
	}
	return truncate(strings.TrimSpace(string(body)), maxErrorBody)
}

// withRetry runs fn, retrying transport failures up to maxRetries times.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := c.retryDelay
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= c.maxRetries {
			return err
		}

		c.debug("%s: transient failure (attempt %d/%d), retrying in %s: %v",
			op, attempt+1, c.maxRetries+1, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}
}

// decodeData unmarshals the envelope's data field into out.
func decodeData(op string, env *envelope, out any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return &ValidationError{Op: op, Field: "data", Reason: "missing from response"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &ValidationError{Op: op, Field: "data", Reason: "unexpected shape", Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
