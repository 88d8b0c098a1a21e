package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production Company API host.
	DefaultBaseURL = "https://company.openapi.com"
	// DefaultTimeout bounds each outbound request.
	DefaultTimeout = 30 * time.Second
)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the Company API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient supplies a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTokenProvider wires the bearer-token source. Without one, requests
// go out unauthenticated.
func WithTokenProvider(provider TokenProvider) ClientOption {
	return func(c *Client) {
		c.tokenProvider = provider
	}
}

// WithLogger supplies a structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetry configures the timeout-retry schedule for data requests.
func WithRetry(maxRetries int, backoffBase float64) ClientOption {
	return func(c *Client) {
		c.backoff = NewBackoff(backoffBase, maxRetries)
	}
}

// Client talks to the Company API. It injects the bearer token from its
// TokenProvider, retries timed-out requests with exponential backoff, and
// self-heals from a rejected token by invalidating it and retrying once.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	tokenProvider TokenProvider
	logger        *slog.Logger
	backoff       Backoff

	// sleep is swapped out in tests to observe the wait schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		logger:     slog.Default(),
		backoff:    NewBackoff(DefaultBackoffBase, DefaultMaxRetries),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Request starts a fluent request against the Company API.
func (c *Client) Request() *RequestBuilder {
	return newRequestBuilder(c)
}

// buildURL resolves path and query against the base URL.
func (c *Client) buildURL(path string, query map[string]string) (string, error) {
	base, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(c.baseURL), "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse path: %w", err)
	}

	u := base.ResolveReference(ref)
	if len(query) > 0 {
		values := u.Query()
		for key, value := range query {
			values.Set(key, value)
		}
		u.RawQuery = values.Encode()
	}

	return u.String(), nil
}

// execute runs one logical request: marshal, authenticate, send, and apply
// the two recovery behaviors (timeout retry with backoff, one forced token
// refresh on 401).
func (c *Client) execute(ctx context.Context, method, path string, query map[string]string, body any, withToken bool) (*RawResponse, error) {
	reqURL, err := c.buildURL(path, query)
	if err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var token string
	if withToken && c.tokenProvider != nil {
		token, err = c.tokenProvider.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
	}

	refreshed := false
	for attempt := 0; ; attempt++ {
		resp, err := c.roundTrip(ctx, method, reqURL, payload, token)
		if err != nil {
			// Only stalled requests are worth repeating against a
			// metered API; connection-level failures surface directly.
			if IsTimeout(err) && attempt < c.backoff.MaxRetries {
				wait := c.backoff.Wait(attempt)
				c.logger.WarnContext(ctx, "request timed out, retrying",
					slog.Int("attempt", attempt+1),
					slog.Duration("wait", wait),
					slog.String("url", RedactURLQuery(reqURL)),
				)
				if serr := c.sleep(ctx, wait); serr != nil {
					return nil, serr
				}
				continue
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized && withToken && c.tokenProvider != nil && !refreshed {
			refreshed = true
			if ierr := c.tokenProvider.Invalidate(ctx); ierr != nil {
				c.logger.WarnContext(ctx, "invalidate token failed", slog.Any("error", ierr))
			}
			token, err = c.tokenProvider.Token(ctx)
			if err != nil {
				return nil, fmt.Errorf("refresh token after 401: %w", err)
			}
			c.logger.InfoContext(ctx, "upstream rejected token, retrying with a fresh one")
			continue
		}

		return resp, nil
	}
}

// roundTrip sends a single HTTP request and reads the whole response.
func (c *Client) roundTrip(ctx context.Context, method, reqURL string, payload []byte, token string) (*RawResponse, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logRequest(ctx, method, reqURL, payload)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logResponse(ctx, resp.StatusCode, respBody)

	return &RawResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func (c *Client) logRequest(ctx context.Context, method, rawURL string, body []byte) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("url", RedactURLQuery(rawURL)),
	}
	if len(body) > 0 {
		attrs = append(attrs, slog.String("body", string(body)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "http request", attrs...)
}

func (c *Client) logResponse(ctx context.Context, statusCode int, body []byte) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := []slog.Attr{slog.Int("status", statusCode)}
	if len(body) > 0 {
		attrs = append(attrs, slog.String("body", truncateBody(body, 1024)))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "http response", attrs...)
}
