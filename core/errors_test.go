package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenAcquisitionError_Message(t *testing.T) {
	withStatus := &TokenAcquisitionError{
		Attempts:   4,
		StatusCode: http.StatusBadGateway,
		Body:       []byte(`{"message":"nope"}`),
	}
	assert.Contains(t, withStatus.Error(), "4 attempts")
	assert.Contains(t, withStatus.Error(), "502")

	withErr := &TokenAcquisitionError{Attempts: 2, Err: errors.New("connection refused")}
	assert.Contains(t, withErr.Error(), "connection refused")
}

func TestTokenAcquisitionError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", &TokenAcquisitionError{Attempts: 1, Err: inner})

	var tae *TokenAcquisitionError
	require.ErrorAs(t, err, &tae)
	assert.ErrorIs(t, err, inner)
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "401 api error", err: NewAPIError(http.StatusUnauthorized, nil), want: true},
		{name: "wrapped 401", err: fmt.Errorf("lookup: %w", NewAPIError(401, nil)), want: true},
		{name: "other api error", err: NewAPIError(http.StatusNotFound, nil), want: false},
		{name: "plain error", err: errors.New("x"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthError(tt.err))
		})
	}
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("do request: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(errors.New("connection refused")))
	assert.False(t, IsTimeout(nil))
}

func TestConfigurationError_Message(t *testing.T) {
	err := &ConfigurationError{Reason: "missing api key"}
	assert.Equal(t, "configuration error: missing api key", err.Error())
}
