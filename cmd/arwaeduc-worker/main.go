package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"arwaeduc/internal/cli"
	"arwaeduc/internal/log"
	"arwaeduc/internal/metrics"
	"arwaeduc/internal/report"
	"arwaeduc/internal/sheets"
	gsheet "arwaeduc/internal/sheets/google"
	"arwaeduc/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting arwaeduc-worker", "report_dir", cfg.ReportDir, "schedule_interval", cfg.ScheduleInterval)

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
	if !analytics.Shared {
		logger.Warn("No shared cache: record events will only refresh this worker's reports")
	}

	var publisher sheets.SummaryPublisher
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		publisher = client
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient := cli.ConnectAMQP(cfg, logger, true)
	defer amqpClient.Close()

	loc, _ := cfg.Location()
	reports := worker.NewReportWorker(analytics.Service, publisher, worker.ReportWorkerConfig{
		Dir:       cfg.ReportDir,
		School:    cfg.SchoolName,
		Formatter: report.NewFormatter(cfg.ReportLocale, cfg.CurrencyLabel),
	}, logger)
	events := worker.NewEventWorker(analytics.Service, logger)
	scheduler := worker.NewScheduler(store.Store, amqpClient, cfg.ScheduleInterval, loc, logger)

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler stop error", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return amqpClient.ConsumeReportRequests(gctx, reports.HandleReportRequest)
	})
	g.Go(func() error {
		return amqpClient.ConsumeRecordCreated(gctx, events.HandleRecordCreated)
	})
	if err := scheduler.Start(gctx); err != nil {
		logger.Error("Failed to start scheduler", log.FieldError, err)
		os.Exit(1)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		_ = scheduler.Stop(context.Background())
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker shutdown complete")
}
