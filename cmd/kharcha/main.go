package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kharcha/internal/auth"
	"kharcha/internal/backend"
	"kharcha/internal/cli"
	"kharcha/internal/config"
	apphttp "kharcha/internal/http"
	applog "kharcha/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp, (*config.Config).ValidateWeb)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	idp := auth.NewToolkitClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey, auth.WithToolkitLogger(logger))
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)

	var ready apphttp.Pinger
	if res.Ready != nil {
		ready = res.Ready
	}
	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:           res.Store,
		Identity:        idp,
		Sessions:        sessions,
		Ready:           ready,
		Logger:          logger,
		GoogleClientID:  cfg.GoogleClientID,
		PostRateLimit:   cfg.PostRateLimit,
		BlockSuspicious: cfg.BlockSuspicious,
	})
	if err != nil {
		logger.Error("Failed to create web server", applog.FieldError, err)
		_ = res.Close()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting kharcha web server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
