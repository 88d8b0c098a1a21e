package core

import (
	"encoding/base64"
	"strings"
)

// CredentialMode selects how the bearer token is obtained. The mode is
// derived from which credential fields are populated and is fixed for the
// lifetime of the process.
type CredentialMode int

const (
	// ModeStatic uses a pre-generated token as-is; no fetch, no expiry.
	ModeStatic CredentialMode = iota
	// ModeDynamic exchanges email+api_key for a short-lived token.
	ModeDynamic
)

// String returns the mode name for logging.
func (m CredentialMode) String() string {
	if m == ModeStatic {
		return "static"
	}
	return "dynamic"
}

// Credentials holds the account material used against the token endpoint.
// A non-empty StaticToken wins over email+api_key.
type Credentials struct {
	StaticToken string
	Email       string
	APIKey      string
}

// Mode reports whether these credentials are static or dynamic.
func (c Credentials) Mode() CredentialMode {
	if strings.TrimSpace(c.StaticToken) != "" {
		return ModeStatic
	}
	return ModeDynamic
}

// Validate checks that at least one usable credential set is present.
// Returns *ConfigurationError so callers can fail fast without retrying.
func (c Credentials) Validate() error {
	if c.Mode() == ModeStatic {
		return nil
	}
	if strings.TrimSpace(c.Email) == "" || strings.TrimSpace(c.APIKey) == "" {
		return &ConfigurationError{
			Reason: "either a static token or both email and api key must be configured",
		}
	}
	return nil
}

// BasicAuth returns the Authorization header value for the token endpoint:
// "Basic " + base64(email:api_key).
func (c Credentials) BasicAuth() string {
	raw := c.Email + ":" + c.APIKey
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}
