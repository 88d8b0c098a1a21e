package company

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mbertoni/openapi-company/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiServer fakes both the token endpoint (POST /token) and the Company
// API on one httptest server.
type apiServer struct {
	*httptest.Server
	tokenHits atomic.Int32
	dataHits  atomic.Int32
	token     string
	data      http.HandlerFunc
}

func newAPIServer(t *testing.T, data http.HandlerFunc) *apiServer {
	t.Helper()
	s := &apiServer{token: "issued-token", data: data}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			s.tokenHits.Add(1)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.NotEmpty(t, r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]string{"token": s.token})
			return
		}
		s.dataHits.Add(1)
		s.data(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func testConfig(s *apiServer) *Config {
	return &Config{
		Email:    "a@b.com",
		APIKey:   "k",
		BaseURL:  s.URL,
		TokenURL: s.URL + "/token",
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(&Config{})
	require.Error(t, err)

	var ce *core.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestCompany_Lookup(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/IT-full/12345678903", r.URL.Path)
		assert.Equal(t, "Bearer issued-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "ACME SPA"})
	})

	c, err := New(testConfig(server))
	require.NoError(t, err)

	resp, err := c.Lookup(context.Background(), "", "12345678903")
	require.NoError(t, err)

	m, err := resp.Map()
	require.NoError(t, err)
	assert.Equal(t, "ACME SPA", m["name"])

	assert.Equal(t, int32(1), server.tokenHits.Load())
	assert.Equal(t, int32(1), server.dataHits.Load())
}

func TestCompany_LookupValidatesBeforeNetwork(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {})

	c, err := New(testConfig(server))
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "IT-full", "not-a-vat")
	require.Error(t, err)
	assert.Equal(t, int32(0), server.tokenHits.Load())
	assert.Equal(t, int32(0), server.dataHits.Load())
}

func TestCompany_StaticTokenSkipsTokenEndpoint(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer static-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "ACME"})
	})

	c, err := New(&Config{
		StaticToken: "static-token",
		BaseURL:     server.URL,
		TokenURL:    server.URL + "/token",
	})
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "IT", "12345678903")
	require.NoError(t, err)
	assert.Equal(t, int32(0), server.tokenHits.Load())
}

func TestCompany_TokenReusedAcrossLookups(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "ACME"})
	})

	c, err := New(testConfig(server))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.Lookup(ctx, "IT", "12345678903")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), server.tokenHits.Load())
	assert.Equal(t, int64(1), c.TokenManager().RefreshCount())
}

func TestCompany_Search(t *testing.T) {
	tests := []struct {
		name      string
		params    SearchParams
		wantQuery map[string]string
		wantErr   bool
	}{
		{
			name:      "by vat",
			params:    SearchParams{VAT: "12345678903"},
			wantQuery: map[string]string{"vat": "12345678903"},
		},
		{
			name:      "by fiscal code",
			params:    SearchParams{FiscalCode: "RSSMRA80A01H501U"},
			wantQuery: map[string]string{"fiscalCode": "RSSMRA80A01H501U"},
		},
		{
			name:      "by company number",
			params:    SearchParams{CompanyNumber: "MI-1234567"},
			wantQuery: map[string]string{"companyNumber": "MI-1234567"},
		},
		{
			name:    "no params",
			params:  SearchParams{},
			wantErr: true,
		},
		{
			name:    "invalid vat",
			params:  SearchParams{VAT: "123"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/IT", r.URL.Path)
				for k, v := range tt.wantQuery {
					assert.Equal(t, v, r.URL.Query().Get(k))
				}
				_ = json.NewEncoder(w).Encode([]map[string]string{{"name": "ACME"}})
			})

			c, err := New(testConfig(server))
			require.NoError(t, err)

			_, err = c.Search(context.Background(), "IT", tt.params)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, int32(0), server.dataHits.Load())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int32(1), server.dataHits.Load())
		})
	}
}

func TestCompany_Scopes(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scopes", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]string{DefaultScope})
	})

	c, err := New(testConfig(server))
	require.NoError(t, err)

	resp, err := c.Scopes(context.Background())
	require.NoError(t, err)

	var scopes []string
	require.NoError(t, resp.JSON(&scopes))
	assert.Equal(t, []string{DefaultScope}, scopes)
}

func TestCompany_UpstreamErrorBecomesAPIError(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"company not found"}`))
	})

	c, err := New(testConfig(server))
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "IT", "12345678903")
	require.Error(t, err)

	var ae *core.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusNotFound, ae.StatusCode)
}

func TestCompany_RevokedTokenSelfHeals(t *testing.T) {
	var issued atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			n := issued.Add(1)
			token := "T1"
			if n > 1 {
				token = "T2"
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
			return
		}
		// T1 has been revoked upstream; only T2 works.
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "ACME"})
	}))
	defer server.Close()

	c, err := New(&Config{
		Email:    "a@b.com",
		APIKey:   "k",
		BaseURL:  server.URL,
		TokenURL: server.URL + "/token",
	})
	require.NoError(t, err)

	resp, err := c.Lookup(context.Background(), "IT", "12345678903")
	require.NoError(t, err)

	m, err := resp.Map()
	require.NoError(t, err)
	assert.Equal(t, "ACME", m["name"])
	assert.Equal(t, int32(2), issued.Load())
}
