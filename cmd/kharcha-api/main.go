package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kharcha/internal/apiserver"
	"kharcha/internal/backend"
	"kharcha/internal/cli"
	"kharcha/internal/config"
	applog "kharcha/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentAPI)

	// The API owns its data; "rest" would point it at itself.
	if cfg.DataBackend == config.BackendREST {
		logger.Info("DATA_BACKEND=rest is not servable by the API, using sqlite", "db_path", cfg.SQLiteDBPath)
		cfg.DataBackend = config.BackendSQLite
	}

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

	var ready apiserver.Pinger
	if res.Ready != nil {
		ready = res.Ready
	}
	srv := apiserver.NewServer(":"+cfg.APIPort, res.Store, ready, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("API shutdown error", applog.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting kharcha API", "port", cfg.APIPort, applog.FieldBackend, cfg.DataBackend,
		"events", cfg.AMQPURL != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("API server error", applog.FieldError, err, "port", cfg.APIPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("API stopped gracefully")
}
