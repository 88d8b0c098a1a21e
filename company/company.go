package company

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mbertoni/openapi-company/core"
)

// DefaultScope is requested for dynamically issued tokens when the caller
// does not specify any.
const DefaultScope = "company.openapi.com/marketing"

// DefaultEndpoint is the dataset queried when none is given.
const DefaultEndpoint = "IT-full"

// Environment selects the OpenAPI deployment to talk to.
type Environment string

const (
	// Production is the live, metered deployment.
	Production Environment = "production"
	// Sandbox is the free test deployment.
	Sandbox Environment = "sandbox"
)

// TokenURL returns the token-issuing endpoint for the environment.
func (e Environment) TokenURL() string {
	if e == Sandbox {
		return "https://test.oauth.openapi.it/token"
	}
	return "https://oauth.openapi.it/token"
}

// BaseURL returns the Company API host for the environment.
func (e Environment) BaseURL() string {
	if e == Sandbox {
		return "https://test.company.openapi.com"
	}
	return "https://company.openapi.com"
}

// Config configures a Company client.
type Config struct {
	// Email and APIKey authenticate against the token endpoint. Ignored
	// when StaticToken is set.
	Email  string
	APIKey string
	// StaticToken bypasses the token lifecycle entirely.
	StaticToken string
	// Environment defaults to Production.
	Environment Environment
	// BaseURL and TokenURL override the environment's endpoints (tests,
	// self-hosted gateways).
	BaseURL  string
	TokenURL string
	// Scopes requested for issued tokens; defaults to DefaultScope.
	Scopes []string
	// TokenTTL is the lifetime requested for issued tokens.
	TokenTTL time.Duration
	// Cache holds the token between refreshes (optional, defaults to an
	// in-memory cache).
	Cache core.Cache
	// HTTPClient overrides the transport (optional).
	HTTPClient *http.Client
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Timeout bounds each outbound request.
	Timeout time.Duration
	// MaxRetries and BackoffBase shape the retry schedule for both the
	// token fetch and timed-out data requests.
	MaxRetries  int
	BackoffBase float64
	// RefreshInterval is how long a fetched token is reused.
	RefreshInterval time.Duration
}

// Validate checks that the config carries usable credentials.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	return cfg.credentials().Validate()
}

func (cfg *Config) credentials() core.Credentials {
	return core.Credentials{
		StaticToken: cfg.StaticToken,
		Email:       cfg.Email,
		APIKey:      cfg.APIKey,
	}
}

// Company is a client for the OpenAPI Company service.
type Company struct {
	config       *Config
	tokenManager *core.TokenManager
	client       *core.Client
}

// New creates a Company client, wiring the token manager and HTTP client
// from the config.
func New(cfg *Config) (*Company, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid company config: %w", err)
	}

	if cfg.Cache == nil {
		cfg.Cache = core.NewMemoryCache()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.Scopes) == 0 && cfg.StaticToken == "" {
		cfg.Scopes = []string{DefaultScope}
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = cfg.Environment.TokenURL()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cfg.Environment.BaseURL()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = core.DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	tokenManager, err := core.NewTokenManager(core.TokenManagerConfig{
		Credentials:     cfg.credentials(),
		TokenURL:        tokenURL,
		Scopes:          cfg.Scopes,
		TokenTTL:        cfg.TokenTTL,
		Cache:           cfg.Cache,
		HTTPClient:      httpClient,
		RefreshInterval: cfg.RefreshInterval,
		MaxRetries:      cfg.MaxRetries,
		BackoffBase:     cfg.BackoffBase,
		Logger:          cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	client := core.NewClient(
		core.WithBaseURL(baseURL),
		core.WithHTTPClient(httpClient),
		core.WithTokenProvider(tokenManager),
		core.WithLogger(cfg.Logger),
		core.WithRetry(cfg.MaxRetries, cfg.BackoffBase),
	)

	return &Company{
		config:       cfg,
		tokenManager: tokenManager,
		client:       client,
	}, nil
}

// Client returns the underlying HTTP client, for calling endpoints the
// package does not wrap.
func (c *Company) Client() *core.Client {
	return c.client
}

// TokenManager returns the token manager, for manual lifecycle control.
func (c *Company) TokenManager() *core.TokenManager {
	return c.tokenManager
}

// Lookup fetches the full record for one VAT code:
// GET /<endpoint>/<vatCode>.
func (c *Company) Lookup(ctx context.Context, endpoint, vatCode string) (*Response, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if err := ValidateVATCode(vatCode); err != nil {
		return nil, err
	}

	resp, err := c.client.Request().
		Path("/" + endpoint + "/" + vatCode).
		Get(ctx)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

// SearchParams are the supported company search keys. At least one must
// be set.
type SearchParams struct {
	VAT           string
	FiscalCode    string
	CompanyNumber string
}

func (p SearchParams) query() (map[string]string, error) {
	q := make(map[string]string)
	if p.VAT != "" {
		if err := ValidateVATCode(p.VAT); err != nil {
			return nil, err
		}
		q["vat"] = p.VAT
	}
	if p.FiscalCode != "" {
		if err := ValidateFiscalCode(p.FiscalCode); err != nil {
			return nil, err
		}
		q["fiscalCode"] = p.FiscalCode
	}
	if p.CompanyNumber != "" {
		q["companyNumber"] = p.CompanyNumber
	}
	if len(q) == 0 {
		return nil, fmt.Errorf("at least one search parameter is required (vat, fiscal code or company number)")
	}
	return q, nil
}

// Search queries an endpoint by vat, fiscalCode or companyNumber:
// GET /<endpoint>?vat=...
func (c *Company) Search(ctx context.Context, endpoint string, params SearchParams) (*Response, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	query, err := params.query()
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Request().
		Path("/" + endpoint).
		QueryMap(query).
		Get(ctx)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

// Scopes lists the scopes the current token grants. The endpoint is free,
// which makes it a cheap credential check.
func (c *Company) Scopes(ctx context.Context) (*Response, error) {
	resp, err := c.client.Request().
		Path("/scopes").
		Get(ctx)
	if err != nil {
		return nil, err
	}
	return decodeResponse(resp)
}

func decodeResponse(resp *core.RawResponse) (*Response, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.NewAPIError(resp.StatusCode, resp.Body)
	}
	return NewResponse(resp.Body), nil
}
