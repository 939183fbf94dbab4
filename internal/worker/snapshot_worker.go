package worker

import (
	"context"
	"fmt"

	"juicestand/internal/amqp"
	"juicestand/internal/archive"
	"juicestand/internal/core"
	"juicestand/internal/log"
)

// Snapshotter computes daily snapshots from the record store.
type Snapshotter interface {
	Invalidate()
	Today() core.Date
	Snapshot(ctx context.Context, day core.Date) (core.DaySnapshot, error)
}

// SnapshotWorker keeps the archive's copy of each day's snapshot current as
// record changes arrive from the broker.
type SnapshotWorker struct {
	reports Snapshotter
	archive archive.SnapshotArchive
	logger  *log.Logger
}

func NewSnapshotWorker(reports Snapshotter, arch archive.SnapshotArchive, logger *log.Logger) *SnapshotWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SnapshotWorker{
		reports: reports,
		archive: arch,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRecordChange re-archives the day the change touched. Changes that
// carry no date (deletes by id, clears) re-archive today.
func (w *SnapshotWorker) HandleRecordChange(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing record change",
		log.FieldMessageID, msg.MessageID,
		log.FieldRecordKind, msg.Kind,
		log.FieldOperation, msg.Op,
		log.FieldRecordID, msg.RecordID)

	day := w.reports.Today()
	if msg.Date != "" {
		d, err := core.ParseDate(msg.Date)
		if err != nil {
			// A bad date will not get better on redelivery.
			w.logger.ErrorContext(ctx, "Ignoring record change with bad date",
				log.FieldMessageID, msg.MessageID, log.FieldDate, msg.Date, log.FieldError, err)
			return nil
		}
		day = d
	}

	// Writes happen in another process, so nothing local has invalidated
	// the cached records.
	w.reports.Invalidate()
	return w.ArchiveDay(ctx, day)
}

// ArchiveDay stores the current snapshot of day.
func (w *SnapshotWorker) ArchiveDay(ctx context.Context, day core.Date) error {
	snap, err := w.reports.Snapshot(ctx, day)
	if err != nil {
		return fmt.Errorf("compute snapshot for %s: %w", day, err)
	}
	if err := w.archive.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("archive snapshot for %s: %w", day, err)
	}
	w.logger.InfoContext(ctx, "Snapshot archived",
		log.FieldDate, day.String(),
		"income_cents", snap.Income.Cents,
		"expenses_cents", snap.Expenses.Cents,
		"profit_cents", snap.Profit.Cents)
	return nil
}

// StartupArchive re-archives the last days days ending today, covering
// changes published while the worker was down.
func (w *SnapshotWorker) StartupArchive(ctx context.Context, days int) error {
	if days < 1 {
		return nil
	}
	w.reports.Invalidate()
	today := w.reports.Today()

	successCount, errorCount := 0, 0
	for i := days - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.ArchiveDay(ctx, today.AddDays(-i)); err != nil {
			w.logger.ErrorContext(ctx, "Failed to archive snapshot during startup", log.FieldError, err)
			errorCount++
			continue
		}
		successCount++
	}

	w.logger.InfoContext(ctx, "Startup archive completed",
		"total", days,
		"archived", successCount,
		"errors", errorCount)
	if successCount == 0 {
		return fmt.Errorf("startup archive failed for all %d days", days)
	}
	return nil
}
