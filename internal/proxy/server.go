// Package proxy is the HTTP route layer in front of the Company client:
// it validates inbound VAT codes, forwards lookups, and translates client
// failures into distinct HTTP status codes so operators can tell
// credential problems from data-availability problems.
package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbertoni/openapi-company/company"
	"github.com/mbertoni/openapi-company/core"
)

// Lookuper is the slice of the Company client the routes need.
type Lookuper interface {
	Lookup(ctx context.Context, endpoint, vatCode string) (*company.Response, error)
}

// Server holds the route dependencies.
type Server struct {
	api      Lookuper
	endpoint string
	logger   *slog.Logger
}

// New creates the route layer. endpoint selects the dataset every lookup
// is forwarded to (e.g. "IT-full").
func New(api Lookuper, endpoint string, logger *slog.Logger) *Server {
	if endpoint == "" {
		endpoint = company.DefaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{api: api, endpoint: endpoint, logger: logger}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), s.accessLog(), gin.Recovery())

	r.GET("/company-info/:vat_code", s.companyInfo)
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) companyInfo(c *gin.Context) {
	vatCode := c.Param("vat_code")
	if err := company.ValidateVATCode(vatCode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "invalid VAT code format",
			"suggestion": "use 11 numeric digits (e.g. 12345678901)",
		})
		return
	}

	resp, err := s.api.Lookup(c.Request.Context(), s.endpoint, vatCode)
	if err != nil {
		s.renderLookupError(c, vatCode, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", resp.Body)
}

// renderLookupError keeps the three failure families apart: our own
// credential exchange (502), an unresponsive upstream (504), and an
// upstream that answered with an error (502 with the upstream code).
func (s *Server) renderLookupError(c *gin.Context, vatCode string, err error) {
	logger := s.logger.With(
		slog.String("vat_code", vatCode),
		slog.String("request_id", requestIDFrom(c)),
	)

	var tae *core.TokenAcquisitionError
	if errors.As(err, &tae) {
		logger.ErrorContext(c.Request.Context(), "credential exchange failed",
			slog.Int("attempts", tae.Attempts),
			slog.Int("upstream_status", tae.StatusCode),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "credential exchange with the token endpoint failed",
			"action": "check service credentials or retry later",
		})
		return
	}

	var ce *core.ConfigurationError
	if errors.As(err, &ce) {
		logger.ErrorContext(c.Request.Context(), "configuration error", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "service is misconfigured",
		})
		return
	}

	if core.IsTimeout(err) {
		logger.ErrorContext(c.Request.Context(), "upstream timed out", slog.Any("error", err))
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":  "the upstream service is not responding",
			"action": "retry later or contact support",
		})
		return
	}

	var ae *core.APIError
	if errors.As(err, &ae) {
		logger.ErrorContext(c.Request.Context(), "upstream error",
			slog.Int("upstream_status", ae.StatusCode),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "upstream service error",
			"code":  ae.StatusCode,
		})
		return
	}

	logger.ErrorContext(c.Request.Context(), "lookup failed", slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":  "temporary server error",
		"action": "retry in a few minutes",
	})
}
