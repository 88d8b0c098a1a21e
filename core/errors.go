package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ConfigurationError reports missing or inconsistent credentials.
// It is terminal: callers must not retry.
type ConfigurationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// TokenAcquisitionError reports that the token endpoint kept failing after
// the retry bound was exhausted. It carries the last upstream status and
// body when the final failure was an HTTP-level one.
type TokenAcquisitionError struct {
	Attempts   int
	StatusCode int    // 0 when the last failure never produced a response
	Body       []byte // truncated upstream body, may be nil
	Err        error  // last underlying error
}

// Error implements the error interface.
func (e *TokenAcquisitionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token acquisition failed after %d attempts: status %d: %s", e.Attempts, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("token acquisition failed after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap supports errors.Is/As.
func (e *TokenAcquisitionError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the Company API.
type APIError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// NewAPIError creates an APIError from an upstream response.
func NewAPIError(statusCode int, body []byte) *APIError {
	return &APIError{StatusCode: statusCode, Body: body}
}

// IsAuthError reports whether err is an upstream 401, meaning the bearer
// token was rejected and should be invalidated.
func IsAuthError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsTimeout reports whether err is a network timeout or a context deadline.
// Timeouts are the one transport failure the data path retries.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// ResponseParseError means the response body was not valid JSON, typically
// a gateway error page in front of the API.
type ResponseParseError struct {
	Body []byte
	Err  error
}

// Error implements the error interface.
func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse response: %v", e.Err)
}

// Unwrap supports errors.Is/As.
func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// NewResponseParseError creates a ResponseParseError.
func NewResponseParseError(body []byte, err error) *ResponseParseError {
	return &ResponseParseError{Body: body, Err: err}
}
