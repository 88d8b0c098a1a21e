// Command companyproxyd is a small HTTP proxy in front of the OpenAPI
// Company service: it forwards VAT-code lookups with a managed bearer
// token, so internal callers never handle OpenAPI credentials.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbertoni/openapi-company/company"
	"github.com/mbertoni/openapi-company/core"
	"github.com/mbertoni/openapi-company/internal/config"
	"github.com/mbertoni/openapi-company/internal/proxy"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	comp, err := company.New(&company.Config{
		Email:           cfg.Email,
		APIKey:          cfg.APIKey,
		StaticToken:     cfg.StaticToken,
		Environment:     company.Environment(cfg.Environment),
		Timeout:         cfg.Timeout,
		MaxRetries:      cfg.MaxRetries,
		BackoffBase:     cfg.BackoffBase,
		RefreshInterval: cfg.RefreshInterval,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: proxy.New(comp, cfg.Endpoint, logger).Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			slog.String("addr", cfg.ListenAddr),
			slog.String("endpoint", cfg.Endpoint),
			slog.String("mode", core.Credentials{StaticToken: cfg.StaticToken}.Mode().String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
