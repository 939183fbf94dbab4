package aggregate

import (
	"sort"
	"time"

	"juicestand/internal/core"
)

// GroupByPeriod partitions sales and expenses into buckets keyed by the start
// of their day, week or month. A bucket exists for every key seen in either
// record set. Buckets are ordered newest first.
//
// Best is the bucket with the highest profit. On equal profit the earlier
// bucket in that order wins, i.e. the most recent period.
func GroupByPeriod(sales []core.Sale, expenses []core.Expense, period core.Period, weekStart time.Weekday) core.PeriodReport {
	if !period.Valid() {
		period = core.Daily
	}
	buckets := make(map[string]*core.PeriodBucket)
	get := func(d core.Date) *core.PeriodBucket {
		key := bucketKey(d, period, weekStart)
		b, ok := buckets[key.String()]
		if !ok {
			b = &core.PeriodBucket{Key: key}
			buckets[key.String()] = b
		}
		return b
	}

	for _, s := range sales {
		b := get(s.Date)
		b.Income = b.Income.Add(s.TotalIncome)
		b.Bottles += s.BottlesSold
	}
	for _, e := range expenses {
		b := get(e.Date)
		b.Expenses = b.Expenses.Add(e.Amount)
	}

	report := core.PeriodReport{
		Period:  period,
		Buckets: make([]core.PeriodBucket, 0, len(buckets)),
	}
	for _, b := range buckets {
		b.Profit = b.Income.Sub(b.Expenses)
		report.Buckets = append(report.Buckets, *b)
	}
	sort.Slice(report.Buckets, func(i, j int) bool {
		return report.Buckets[j].Key.Before(report.Buckets[i].Key)
	})

	for _, b := range report.Buckets {
		report.Totals.Income = report.Totals.Income.Add(b.Income)
		report.Totals.Expenses = report.Totals.Expenses.Add(b.Expenses)
		report.Totals.Bottles += b.Bottles
	}
	report.Totals.Profit = report.Totals.Income.Sub(report.Totals.Expenses)
	report.Best = bestBucket(report.Buckets)
	return report
}

func bestBucket(buckets []core.PeriodBucket) *core.PeriodBucket {
	if len(buckets) == 0 {
		return nil
	}
	best := buckets[0]
	for _, b := range buckets[1:] {
		if b.Profit.Cents > best.Profit.Cents {
			best = b
		}
	}
	return &best
}

// PeriodLabel renders a bucket key for reports: the day itself, "Week of
// 2006-01-02" or "January 2006".
func PeriodLabel(key core.Date, period core.Period) string {
	switch period {
	case core.Weekly:
		return "Week of " + key.String()
	case core.Monthly:
		return key.Format("January 2006")
	default:
		return key.String()
	}
}
