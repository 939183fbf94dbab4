package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"juicestand/internal/archive"
	"juicestand/internal/core"
	"juicestand/internal/export"
	"juicestand/internal/log"
)

// ReportSource is the part of the report service the nightly job reads.
type ReportSource interface {
	Invalidate()
	Today() core.Date
	Snapshot(ctx context.Context, day core.Date) (core.DaySnapshot, error)
	Report(ctx context.Context, period core.Period) (core.PeriodReport, error)
}

// Scheduler runs the end-of-day job: archive today's snapshot and export
// the period report.
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	period    core.Period
	reports   ReportSource
	archive   archive.SnapshotArchive
	exporters []export.ReportExporter
	timeout   time.Duration
	logger    *log.Logger
}

// New builds a scheduler whose cron runs in loc. A nil archive skips
// archiving.
func New(schedule string, period core.Period, loc *time.Location, reports ReportSource, arch archive.SnapshotArchive, exporters []export.ReportExporter, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Discard()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		schedule:  schedule,
		period:    period,
		reports:   reports,
		archive:   arch,
		exporters: exporters,
		timeout:   2 * time.Minute,
		logger:    logger.WithComponent(log.ComponentScheduler),
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("schedule end-of-day job %q: %w", s.schedule, err)
	}
	s.logger.Info("Starting scheduler", "schedule", s.schedule, log.FieldPeriod, string(s.period))
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("End-of-day job failed", log.FieldError, err)
	}
}

// RunOnce runs the end-of-day job now. Every step is attempted; the errors
// of failed steps are joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.reports.Invalidate()
	var errs []error

	if s.archive != nil {
		today := s.reports.Today()
		snap, err := s.reports.Snapshot(ctx, today)
		if err == nil {
			err = s.archive.SaveSnapshot(ctx, snap)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("archive %s: %w", today, err))
		} else {
			s.logger.InfoContext(ctx, "Daily snapshot archived", log.FieldDate, today.String(), log.FieldOperation, log.OpArchive)
		}
	}

	if len(s.exporters) == 0 {
		return errors.Join(errs...)
	}
	report, err := s.reports.Report(ctx, s.period)
	if err != nil {
		errs = append(errs, fmt.Errorf("build %s report: %w", s.period, err))
		return errors.Join(errs...)
	}
	for _, e := range s.exporters {
		if err := e.ExportReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("export %s report: %w", s.period, err))
			continue
		}
		s.logger.InfoContext(ctx, "Report exported",
			log.FieldPeriod, string(s.period),
			"exporter", fmt.Sprintf("%T", e),
			"buckets", len(report.Buckets))
	}
	return errors.Join(errs...)
}
