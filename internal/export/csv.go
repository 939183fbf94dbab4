package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"juicestand/internal/core"
)

// WriteCSV writes the report table to w.
func WriteCSV(w io.Writer, r core.PeriodReport) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(ReportRows(r)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// FileExporter writes each report to its own CSV file in Dir.
type FileExporter struct {
	Dir string
	Now func() time.Time
}

var _ ReportExporter = (*FileExporter)(nil)

// FileName is the name a report exported at t gets.
func FileName(period core.Period, t time.Time) string {
	return fmt.Sprintf("report-%s-%s.csv", period, t.Format("20060102-150405"))
}

func (e *FileExporter) ExportReport(_ context.Context, r core.PeriodReport) error {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	path := filepath.Join(e.Dir, FileName(r.Period, now()))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
