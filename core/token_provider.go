package core

import (
	"context"
)

// TokenProvider supplies the bearer credential used to call the Company API.
type TokenProvider interface {
	// Token returns a token that is valid at the time of the call.
	// Implementations are expected to handle caching and refresh; callers
	// must not hold on to the returned value across requests.
	//
	// Errors:
	//   - *ConfigurationError: credentials are missing or inconsistent
	//   - *TokenAcquisitionError: the token endpoint kept failing past the
	//     retry bound
	Token(ctx context.Context) (string, error)

	// Invalidate discards the cached token so the next Token call performs
	// a fresh fetch. Callers invoke this after the downstream API rejects a
	// request with 401, to recover from a revoked token without a restart.
	// No-op for statically configured credentials.
	Invalidate(ctx context.Context) error
}
