package core

import (
	"context"
	"net/http"
)

// RawResponse is an undecoded upstream response.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// RequestBuilder assembles a Company API request fluently.
type RequestBuilder struct {
	client          *Client
	path            string
	query           map[string]string
	body            any
	shouldAddBearer bool
	method          string
}

func newRequestBuilder(client *Client) *RequestBuilder {
	return &RequestBuilder{
		client:          client,
		query:           make(map[string]string),
		shouldAddBearer: true,
	}
}

// Path sets the request path.
func (b *RequestBuilder) Path(path string) *RequestBuilder {
	b.path = path
	return b
}

// Query adds a single query parameter.
func (b *RequestBuilder) Query(key, value string) *RequestBuilder {
	if b.query == nil {
		b.query = make(map[string]string)
	}
	b.query[key] = value
	return b
}

// QueryMap adds a batch of query parameters.
func (b *RequestBuilder) QueryMap(query map[string]string) *RequestBuilder {
	if b.query == nil {
		b.query = make(map[string]string)
	}
	for k, v := range query {
		b.query[k] = v
	}
	return b
}

// Body sets the JSON request body.
func (b *RequestBuilder) Body(body any) *RequestBuilder {
	b.body = body
	return b
}

// WithoutToken sends the request unauthenticated.
func (b *RequestBuilder) WithoutToken() *RequestBuilder {
	b.shouldAddBearer = false
	return b
}

// WithToken sends the request with a bearer token (default behavior).
func (b *RequestBuilder) WithToken() *RequestBuilder {
	b.shouldAddBearer = true
	return b
}

// Get executes a GET request.
func (b *RequestBuilder) Get(ctx context.Context) (*RawResponse, error) {
	b.method = http.MethodGet
	return b.do(ctx)
}

// Post executes a POST request.
func (b *RequestBuilder) Post(ctx context.Context) (*RawResponse, error) {
	b.method = http.MethodPost
	return b.do(ctx)
}

func (b *RequestBuilder) do(ctx context.Context) (*RawResponse, error) {
	return b.client.execute(ctx, b.method, b.path, b.query, b.body, b.shouldAddBearer)
}
