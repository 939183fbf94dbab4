package main

import (
	"context"
	"errors"
	"os"
	"time"

	"juicestand/internal/archive"
	"juicestand/internal/backend"
	"juicestand/internal/cli"
	"juicestand/internal/config"
	"juicestand/internal/core"
	"juicestand/internal/export"
	"juicestand/internal/log"
	"juicestand/internal/scheduler"
	"juicestand/internal/services"
	"juicestand/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.BootstrapLogger())
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting juicestand-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Worker is reading a private memory store; snapshots will be empty")
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}

	calendar := services.Calendar{
		Location:     cfg.Location(),
		WeekStart:    cfg.FirstWeekday(),
		TrailingDays: cfg.TrailingDays,
		Now:          time.Now,
	}
	// No hub here: writes happen in the server process, so the worker
	// invalidates on every broker message instead.
	reports := services.NewReportService(res.Store, nil,
		services.WithReportCalendar(calendar),
		services.WithReportLogger(logger),
		services.WithReportCache(cfg.ReportCacheSize, cfg.ReportCacheTTL))

	arch, err := openArchive(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize snapshot archive", log.FieldError, err)
		os.Exit(1)
	}

	exporters := []export.ReportExporter{&export.FileExporter{Dir: cfg.ExportDir}}
	if cfg.GoogleSpreadsheetID != "" {
		sheetsExporter, err := openSheets(cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		exporters = append(exporters, sheetsExporter)
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleReportSheet)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	snapshots := worker.NewSnapshotWorker(reports, arch, logger)
	period, _ := core.ParsePeriod(cfg.ReportPeriod)
	sched := scheduler.New(cfg.ReportCronSchedule, period, calendar.Location, reports, arch, exporters, logger)
	if err := sched.Start(); err != nil {
		logger.Error("Failed to start scheduler", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		sched.Stop()
		if err := arch.Close(ctx); err != nil {
			logger.Error("Archive close error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Performing startup archive", "days", cfg.TrailingDays)
	if err := snapshots.StartupArchive(ctx, cfg.TrailingDays); err != nil {
		// Keep running; the broker and the nightly job will catch up.
		logger.Error("Startup archive failed", log.FieldError, err)
	}

	if res.Publisher != nil {
		go func() {
			err := res.Publisher.ConsumeRecordChanges(ctx, snapshots.HandleRecordChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

func openArchive(cfg *config.Config, logger *log.Logger) (archive.SnapshotArchive, error) {
	if cfg.MongoURI == "" {
		logger.Warn("MONGODB_URI not set; snapshots are kept in memory only")
		return archive.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a, err := archive.NewMongoArchive(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, err
	}
	logger.Info("Initialized MongoDB snapshot archive", "database", cfg.MongoDBName)
	return a, nil
}

func openSheets(cfg *config.Config) (*export.SheetsExporter, error) {
	creds, err := export.LoadCredentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		return nil, err
	}
	// The client keeps this context for token refreshes, so it must outlive startup.
	return export.NewSheetsExporter(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleReportSheet, creds)
}
