package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultTokenURL is the production token-issuing endpoint.
	DefaultTokenURL = "https://oauth.openapi.it/token"
	// DefaultRefreshInterval is how long a fetched token is reused before
	// the manager fetches a new one.
	DefaultRefreshInterval = 45 * time.Minute

	defaultTokenCacheKey = "openapi:company:token"
)

// tokenResponse is the token endpoint's success body.
type tokenResponse struct {
	Token string `json:"token"`
}

// tokenRequest is the optional request body asking for scoped tokens with
// an explicit lifetime.
type tokenRequest struct {
	Scopes []string `json:"scopes"`
	TTL    int      `json:"ttl"`
}

// TokenManagerConfig configures a TokenManager. Zero values fall back to
// the documented defaults.
type TokenManagerConfig struct {
	// Credentials select static or dynamic mode (required).
	Credentials Credentials
	// TokenURL is the token-issuing endpoint.
	TokenURL string
	// Scopes, when set, are sent in the token request body together with
	// TokenTTL. When empty the request is sent with no body.
	Scopes []string
	// TokenTTL is the lifetime requested for issued tokens.
	TokenTTL time.Duration
	// Cache stores the fetched token between refreshes.
	Cache Cache
	// CacheKey namespaces the token in the cache.
	CacheKey string
	// HTTPClient performs token requests; its timeout bounds each attempt.
	HTTPClient *http.Client
	// RefreshInterval is the cache TTL applied to fetched tokens.
	RefreshInterval time.Duration
	// MaxRetries bounds retries after the first failed attempt.
	MaxRetries int
	// BackoffBase is the exponent base of the wait schedule.
	BackoffBase float64
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

type tokenCall struct {
	done  chan struct{}
	token string
	err   error
}

// TokenManager owns the lifecycle of the single bearer credential: it
// decides between the static and the dynamic token, fetches and refreshes
// the dynamic one with bounded exponential backoff, and serves the current
// valid value on demand. Concurrent callers that miss the cache share one
// in-flight fetch.
type TokenManager struct {
	creds           Credentials
	tokenURL        string
	scopes          []string
	tokenTTL        time.Duration
	cache           Cache
	cacheKey        string
	httpClient      *http.Client
	refreshInterval time.Duration
	backoff         Backoff
	logger          *slog.Logger

	// sleep is swapped out in tests to observe the wait schedule.
	sleep func(ctx context.Context, d time.Duration) error

	refreshCount atomic.Int64

	mu       sync.Mutex
	inflight *tokenCall
}

// NewTokenManager validates the credentials and builds a manager.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	cache := cfg.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}

	cacheKey := cfg.CacheKey
	if cacheKey == "" {
		cacheKey = defaultTokenCacheKey
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	refreshInterval := cfg.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = DefaultRefreshInterval
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TokenManager{
		creds:           cfg.Credentials,
		tokenURL:        tokenURL,
		scopes:          cfg.Scopes,
		tokenTTL:        cfg.TokenTTL,
		cache:           cache,
		cacheKey:        cacheKey,
		httpClient:      httpClient,
		refreshInterval: refreshInterval,
		backoff:         NewBackoff(cfg.BackoffBase, maxRetries),
		logger:          logger,
		sleep:           sleepContext,
	}, nil
}

// Token returns a valid bearer token. In static mode this is the configured
// value; in dynamic mode the cached token is served until it expires or is
// invalidated, then a fresh one is fetched with retry.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if m.creds.Mode() == ModeStatic {
		return m.creds.StaticToken, nil
	}

	if token, ok := m.cache.Get(ctx, m.cacheKey); ok {
		return token, nil
	}
	return m.do(ctx)
}

// Invalidate clears the cached token so the next Token call fetches a
// fresh one. No-op in static mode.
func (m *TokenManager) Invalidate(ctx context.Context) error {
	if m.creds.Mode() == ModeStatic {
		return nil
	}
	return m.cache.Delete(ctx, m.cacheKey)
}

// RefreshCount returns how many dynamic fetches have succeeded.
func (m *TokenManager) RefreshCount() int64 {
	return m.refreshCount.Load()
}

// do coalesces concurrent fetches: the first caller performs the fetch,
// the rest wait on its result, each honoring their own context.
func (m *TokenManager) do(ctx context.Context) (string, error) {
	m.mu.Lock()
	if token, ok := m.cache.Get(ctx, m.cacheKey); ok {
		m.mu.Unlock()
		return token, nil
	}

	if m.inflight != nil {
		call := m.inflight
		m.mu.Unlock()
		return waitTokenCall(ctx, call)
	}

	call := &tokenCall{done: make(chan struct{})}
	m.inflight = call
	m.mu.Unlock()

	token, err := m.fetchAndStore(ctx)
	call.token = token
	call.err = err
	close(call.done)

	m.mu.Lock()
	if m.inflight == call {
		m.inflight = nil
	}
	m.mu.Unlock()

	return token, err
}

// fetchAndStore runs the retry loop against the token endpoint and caches
// the result for the refresh interval.
func (m *TokenManager) fetchAndStore(ctx context.Context) (string, error) {
	var (
		lastErr    error
		lastStatus int
		lastBody   []byte
	)

	for attempt := 0; attempt < m.backoff.Attempts(); attempt++ {
		tokenFetchAttemptsTotal.Inc()

		token, status, body, err := m.fetchOnce(ctx)
		if err == nil {
			m.store(ctx, token)
			return token, nil
		}

		lastErr = err
		lastStatus = status
		lastBody = body

		if attempt == m.backoff.MaxRetries {
			break
		}

		wait := m.backoff.Wait(attempt)
		m.logger.WarnContext(ctx, "token request failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
		if err := m.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	tokenFetchFailuresTotal.Inc()
	m.logger.ErrorContext(ctx, "token acquisition failed",
		slog.Int("attempts", m.backoff.Attempts()),
		slog.Any("error", lastErr),
	)
	return "", &TokenAcquisitionError{
		Attempts:   m.backoff.Attempts(),
		StatusCode: lastStatus,
		Body:       lastBody,
		Err:        lastErr,
	}
}

// fetchOnce performs one POST to the token endpoint. On HTTP-level failure
// it also returns the upstream status and truncated body for diagnostics.
func (m *TokenManager) fetchOnce(ctx context.Context) (token string, status int, body []byte, err error) {
	var reqBody io.Reader
	if len(m.scopes) > 0 {
		payload, merr := json.Marshal(tokenRequest{
			Scopes: m.scopes,
			TTL:    int(m.tokenTTL.Seconds()),
		})
		if merr != nil {
			return "", 0, nil, fmt.Errorf("marshal token request: %w", merr)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, reqBody)
	if err != nil {
		return "", 0, nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Authorization", m.creds.BasicAuth())
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", 0, nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", resp.StatusCode, []byte(truncateBody(respBody, 256)),
			fmt.Errorf("token endpoint status %d", resp.StatusCode)
	}

	var result tokenResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", 0, nil, fmt.Errorf("unmarshal token response: %w", err)
	}
	if result.Token == "" {
		return "", 0, nil, fmt.Errorf("token endpoint response has no token field")
	}

	return result.Token, resp.StatusCode, nil, nil
}

// store caches the token for the refresh interval and bumps the counters.
// A cache write failure is logged, not fatal: the token itself is valid.
func (m *TokenManager) store(ctx context.Context, token string) {
	if err := m.cache.Set(ctx, m.cacheKey, token, m.refreshInterval); err != nil {
		m.logger.WarnContext(ctx, "cache token failed",
			slog.String("key", m.cacheKey),
			slog.Any("error", err),
		)
	}

	m.refreshCount.Add(1)
	tokenRefreshTotal.Inc()
	m.logger.InfoContext(ctx, "token refreshed",
		slog.Int64("refresh_count", m.refreshCount.Load()),
		slog.Duration("refresh_interval", m.refreshInterval),
	)
}

func waitTokenCall(ctx context.Context, call *tokenCall) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-call.done:
		return call.token, call.err
	}
}

var _ TokenProvider = (*TokenManager)(nil)
