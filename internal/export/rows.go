// Package export renders period reports as tables and ships them to files
// or spreadsheets.
package export

import (
	"context"
	"strconv"

	"juicestand/internal/aggregate"
	"juicestand/internal/core"
)

// ReportExporter publishes a period report somewhere outside the app.
type ReportExporter interface {
	ExportReport(ctx context.Context, r core.PeriodReport) error
}

var reportHeader = []string{"Period", "Income", "Expenses", "Profit", "Bottles"}

// ReportRows lays a report out as a table: a header, one row per bucket
// newest first, a blank row, the totals and the best period.
func ReportRows(r core.PeriodReport) [][]string {
	rows := make([][]string, 0, len(r.Buckets)+4)
	rows = append(rows, append([]string(nil), reportHeader...))
	for _, b := range r.Buckets {
		rows = append(rows, []string{
			aggregate.PeriodLabel(b.Key, r.Period),
			b.Income.String(),
			b.Expenses.String(),
			b.Profit.String(),
			strconv.Itoa(b.Bottles),
		})
	}
	rows = append(rows, []string{})
	rows = append(rows, []string{
		"Total",
		r.Totals.Income.String(),
		r.Totals.Expenses.String(),
		r.Totals.Profit.String(),
		strconv.Itoa(r.Totals.Bottles),
	})
	if r.Best != nil {
		rows = append(rows, []string{"Best", aggregate.PeriodLabel(r.Best.Key, r.Period), r.Best.Profit.String()})
	}
	return rows
}
