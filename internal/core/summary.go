package core

import "github.com/shopspring/decimal"

// DaySnapshot is the income, expenses and profit of one calendar day.
type DaySnapshot struct {
	Date     Date
	Income   Money
	Expenses Money
	Profit   Money
}

// SeriesPoint is one day of a trailing-window chart.
type SeriesPoint struct {
	Date   Date
	Label  string // MM/DD
	Income Money
	Profit Money
}

// Totals are all-time (or whole-report) sums.
type Totals struct {
	Income   Money
	Expenses Money
	Profit   Money
	Bottles  int
}

// SalesTally summarises a set of sales, usually one day's.
type SalesTally struct {
	Bottles int
	Liters  decimal.Decimal
	Income  Money
}

// PeriodBucket aggregates all records whose date falls in one period.
type PeriodBucket struct {
	Key      Date
	Income   Money
	Expenses Money
	Profit   Money
	Bottles  int
}

// PeriodReport lists buckets newest first. Best is nil when there are no buckets.
type PeriodReport struct {
	Period  Period
	Buckets []PeriodBucket
	Totals  Totals
	Best    *PeriodBucket
}

// StockLevel is the estimated stock of one item.
type StockLevel struct {
	Item      Item
	Acquired  decimal.Decimal
	Used      decimal.Decimal
	Remaining decimal.Decimal
	Low       bool
	Percent   decimal.Decimal
}

type InventoryStatus struct {
	Levels []StockLevel
}

// Level returns the stock level of item, zero-valued when absent.
func (s InventoryStatus) Level(item Item) StockLevel {
	for _, l := range s.Levels {
		if l.Item == item {
			return l
		}
	}
	return StockLevel{Item: item}
}
