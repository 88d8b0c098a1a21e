package core

import (
	"bytes"
	"encoding/json"
)

// Decode maps an upstream response to T. Non-2xx statuses become
// *APIError with the truncated body attached; a 2xx with an unparseable
// body becomes *ResponseParseError.
func Decode[T any](statusCode int, body []byte) (T, error) {
	var zero T

	if statusCode < 200 || statusCode >= 300 {
		return zero, NewAPIError(statusCode, []byte(truncateBody(body, 256)))
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return zero, nil
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, NewResponseParseError(body, err)
	}
	return out, nil
}

func truncateBody(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
