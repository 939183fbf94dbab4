package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"juicestand/internal/backend"
	"juicestand/internal/cache"
	"juicestand/internal/cli"
	apphttp "juicestand/internal/http"
	"juicestand/internal/log"
	"juicestand/internal/notify"
	"juicestand/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.BootstrapLogger())
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	calendar := services.Calendar{
		Location:     cfg.Location(),
		WeekStart:    cfg.FirstWeekday(),
		TrailingDays: cfg.TrailingDays,
		Now:          time.Now,
	}
	hub := notify.NewHub()

	ledgerOpts := []services.LedgerOption{
		services.WithCalendar(calendar),
		services.WithLogger(logger),
		services.WithAtomicStockWrites(cfg.AtomicStockWrites),
	}
	if res.Publisher != nil {
		ledgerOpts = append(ledgerOpts, services.WithPublisher(res.Publisher))
	}
	ledger := services.NewLedgerService(res.Store, hub, ledgerOpts...)
	reports := services.NewReportService(res.Store, hub,
		services.WithReportCalendar(calendar),
		services.WithReportLogger(logger),
		services.WithReportCache(cfg.ReportCacheSize, cfg.ReportCacheTTL))

	caches := cache.NewManager(logger)
	for _, c := range reports.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(10 * time.Minute)

	srv := apphttp.NewServer(net.JoinHostPort("", cfg.Port), ledger, reports, logger)
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		reports.Close()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting juicestand server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone,
		"atomic_stock_writes", cfg.AtomicStockWrites)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
