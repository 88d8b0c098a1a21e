package company

import (
	"bytes"
	"encoding/json"
)

// Response wraps a Company API response body.
type Response struct {
	// Body is the raw response body.
	Body []byte
}

// NewResponse creates a Response.
func NewResponse(body []byte) *Response {
	return &Response{Body: body}
}

// String returns the body as a string.
func (r *Response) String() string {
	return string(r.Body)
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Map decodes the body into a generic map.
func (r *Response) Map() (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// PrettyJSON re-indents the body for file export; falls back to the raw
// body when it is not valid JSON.
func (r *Response) PrettyJSON() []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Body, "", "  "); err != nil {
		return r.Body
	}
	return buf.Bytes()
}
