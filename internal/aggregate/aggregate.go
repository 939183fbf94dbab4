// Package aggregate derives summary figures from raw sale, expense and
// inventory records.
//
// Every function here is pure: it reads the slices it is given, never mutates
// them, performs no I/O and returns the same output for the same input.
package aggregate

import (
	"sort"
	"time"

	"juicestand/internal/core"
)

// DefaultTrailingDays is the length of the dashboard chart.
const DefaultTrailingDays = 7

// SeriesLabelLayout renders a series point as MM/DD.
const SeriesLabelLayout = "01/02"

// DailySnapshot sums the income and expenses recorded on day.
func DailySnapshot(sales []core.Sale, expenses []core.Expense, day core.Date) core.DaySnapshot {
	var income, spent core.Money
	for _, s := range sales {
		if s.Date.Equal(day) {
			income = income.Add(s.TotalIncome)
		}
	}
	for _, e := range expenses {
		if e.Date.Equal(day) {
			spent = spent.Add(e.Amount)
		}
	}
	return core.DaySnapshot{
		Date:     day,
		Income:   income,
		Expenses: spent,
		Profit:   income.Sub(spent),
	}
}

// TrailingSeries returns one point per day for the n days ending on end,
// oldest first. Days without activity are included with zero values.
// A non-positive n falls back to DefaultTrailingDays.
func TrailingSeries(sales []core.Sale, expenses []core.Expense, end core.Date, n int) []core.SeriesPoint {
	if n <= 0 {
		n = DefaultTrailingDays
	}
	points := make([]core.SeriesPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		day := end.AddDays(-i)
		snap := DailySnapshot(sales, expenses, day)
		points = append(points, core.SeriesPoint{
			Date:   day,
			Label:  day.Format(SeriesLabelLayout),
			Income: snap.Income,
			Profit: snap.Profit,
		})
	}
	return points
}

// AllTimeTotals sums every record regardless of date.
func AllTimeTotals(sales []core.Sale, expenses []core.Expense) core.Totals {
	var t core.Totals
	for _, s := range sales {
		t.Income = t.Income.Add(s.TotalIncome)
		t.Bottles += s.BottlesSold
	}
	for _, e := range expenses {
		t.Expenses = t.Expenses.Add(e.Amount)
	}
	t.Profit = t.Income.Sub(t.Expenses)
	return t
}

// TallySales sums bottles, liters and income over sales.
func TallySales(sales []core.Sale) core.SalesTally {
	var t core.SalesTally
	for _, s := range sales {
		t.Bottles += s.BottlesSold
		t.Liters = t.Liters.Add(s.LitersSold)
		t.Income = t.Income.Add(s.TotalIncome)
	}
	return t
}

// SumExpenses totals the amounts of expenses.
func SumExpenses(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// SalesOnDay returns the sales dated day, newest first by timestamp.
func SalesOnDay(sales []core.Sale, day core.Date) []core.Sale {
	out := make([]core.Sale, 0)
	for _, s := range sales {
		if s.Date.Equal(day) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// ExpensesOnDay returns the expenses dated day, newest first by timestamp.
func ExpensesOnDay(expenses []core.Expense, day core.Date) []core.Expense {
	out := make([]core.Expense, 0)
	for _, e := range expenses {
		if e.Date.Equal(day) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// bucketKey maps a record date to the start of its period.
func bucketKey(d core.Date, period core.Period, weekStart time.Weekday) core.Date {
	switch period {
	case core.Weekly:
		return d.StartOfWeek(weekStart)
	case core.Monthly:
		return d.StartOfMonth()
	default:
		return d
	}
}
