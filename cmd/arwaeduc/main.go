package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"arwaeduc/internal/cli"
	apphttp "arwaeduc/internal/http"
	"arwaeduc/internal/log"
	"arwaeduc/internal/metrics"
	"arwaeduc/internal/middleware/security"
	"arwaeduc/internal/report"
	"arwaeduc/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	logger.Info("Starting arwaeduc server", "port", cfg.Port, "backend", cfg.DataBackend)

	if err := metrics.Init(nil); err != nil {
		logger.Error("Failed to register metrics", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	store := cli.OpenBackend(ctx, cfg, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	}()

	analytics, err := cli.BuildAnalytics(ctx, cfg, store.Store, logger)
	if err != nil {
		logger.Error("Failed to initialize analytics", log.FieldError, err)
		os.Exit(1)
	}
	defer analytics.Close()

	// Nil when AMQP is disabled: records are still saved, only events are skipped.
	amqpClient := cli.ConnectAMQP(cfg, logger, false)
	var (
		publisher services.EventPublisher
		reports   apphttp.ReportQueue
	)
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher, reports = amqpClient, amqpClient
	}

	detector, err := security.NewDetector(security.DefaultTrustedProxies, logger)
	if err != nil {
		logger.Error("Failed to initialize request detector", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Analytics:          analytics.Service,
		Recorder:           services.NewRecordingService(store.Store, analytics.Service, publisher),
		Attendance:         services.NewAttendanceService(store.Store),
		Reports:            reports,
		Formatter:          report.NewFormatter(cfg.ReportLocale, cfg.CurrencyLabel),
		School:             cfg.SchoolName,
		Logger:             logger,
		Detector:           detector,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              store.Store.Ping,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
