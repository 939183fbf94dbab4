package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"juicestand/internal/core"
	"juicestand/internal/memory"
	"juicestand/internal/notify"
	"juicestand/internal/records"
)

// countingReader counts full listings so cache hits can be observed.
type countingReader struct {
	RecordReader
	fullLoads atomic.Int32
	err       error
}

func (r *countingReader) ListSales(ctx context.Context, f records.Filter) ([]core.Sale, error) {
	if f.Date == nil {
		r.fullLoads.Add(1)
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.RecordReader.ListSales(ctx, f)
}

type fixture struct {
	store   *memory.Store
	reader  *countingReader
	ledger  *LedgerService
	reports *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	hub := notify.NewHub()
	reader := &countingReader{RecordReader: store}
	cal := testCalendar()
	var tick atomic.Int64
	cal.Now = func() time.Time { return fixedNow.Add(time.Duration(tick.Add(1)) * time.Second) }
	f := &fixture{
		store:   store,
		reader:  reader,
		ledger:  NewLedgerService(store, hub, WithCalendar(cal)),
		reports: NewReportService(reader, hub, WithReportCalendar(cal)),
	}
	t.Cleanup(f.reports.Close)
	return f
}

func (f *fixture) sale(t *testing.T, date core.Date, bottles int, size core.BottleSize) core.Sale {
	t.Helper()
	s, err := f.ledger.AddSale(context.Background(), SaleInput{Date: date, Bottles: bottles, BottleSize: size})
	if err != nil {
		t.Fatalf("add sale: %v", err)
	}
	return s
}

func (f *fixture) expense(t *testing.T, date core.Date, category core.Category, cents int64, quantity decimal.NullDecimal) {
	t.Helper()
	if _, err := f.ledger.AddExpense(context.Background(), ExpenseInput{Date: date, Category: category, Amount: core.Money{Cents: cents}, Quantity: quantity}); err != nil {
		t.Fatalf("add expense: %v", err)
	}
}

func TestReportService_Dashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	today := core.NewDate(2024, 3, 10)

	f.sale(t, today, 5, core.BottleSizeHalf)
	f.sale(t, today, 3, core.BottleSizeLiter)
	f.sale(t, today.AddDays(-1), 2, core.BottleSizeHalf)
	f.expense(t, today, core.CategoryTransport, 2500, decimal.NullDecimal{})
	f.expense(t, today.AddDays(-30), core.CategoryOther, 1000, decimal.NullDecimal{})

	d, err := f.reports.Dashboard(ctx, core.Date{})
	if err != nil {
		t.Fatal(err)
	}
	if !d.IsToday || !d.Day.Date.Equal(today) {
		t.Fatalf("expected today's dashboard, got %+v", d.Day)
	}
	if d.Day.Income.Cents != 11000 || d.Day.Expenses.Cents != 2500 || d.Day.Profit.Cents != 8500 {
		t.Errorf("unexpected day snapshot %+v", d.Day)
	}
	if d.AllTime.Income.Cents != 13000 || d.AllTime.Expenses.Cents != 3500 || d.AllTime.Bottles != 10 {
		t.Errorf("unexpected all-time totals %+v", d.AllTime)
	}
	if len(d.Series) != 7 || !d.Series[6].Date.Equal(today) || d.Series[5].Income.Cents != 2000 {
		t.Errorf("unexpected series %+v", d.Series)
	}
	if !d.Next.Equal(today) || !d.Prev.Equal(today.AddDays(-1)) {
		t.Errorf("navigation: prev=%s next=%s", d.Prev, d.Next)
	}

	past, err := f.reports.Dashboard(ctx, today.AddDays(-1))
	if err != nil {
		t.Fatal(err)
	}
	if past.IsToday || !past.Next.Equal(today) || past.Day.Income.Cents != 2000 {
		t.Errorf("unexpected past dashboard %+v", past)
	}
}

func TestReportService_DayListings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	today := core.NewDate(2024, 3, 10)

	first := f.sale(t, today, 2, core.BottleSizeHalf)
	second := f.sale(t, today, 1, core.BottleSizeLiter)
	f.sale(t, today.AddDays(-1), 9, core.BottleSizeHalf)
	f.expense(t, today, core.CategoryProduce, 4000, qty(10))
	f.expense(t, today, core.CategoryOther, 500, decimal.NullDecimal{})

	sales, err := f.reports.DaySales(ctx, today)
	if err != nil {
		t.Fatal(err)
	}
	if len(sales.Sales) != 2 {
		t.Fatalf("expected 2 sales, got %d", len(sales.Sales))
	}
	if sales.Sales[0].ID != second.ID || sales.Sales[1].ID != first.ID {
		t.Errorf("expected newest first, got %d, %d", sales.Sales[0].ID, sales.Sales[1].ID)
	}
	if sales.Tally.Bottles != 3 || sales.Tally.Income.Cents != 4000 || !sales.Tally.Liters.Equal(decimal.NewFromInt(2)) {
		t.Errorf("unexpected tally %+v", sales.Tally)
	}

	expenses, err := f.reports.DayExpenses(ctx, core.Date{})
	if err != nil {
		t.Fatal(err)
	}
	if len(expenses.Expenses) != 2 || expenses.Total.Cents != 4500 {
		t.Errorf("unexpected expenses %+v", expenses)
	}
}

func TestReportService_Inventory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	day := core.NewDate(2024, 3, 10)

	f.expense(t, day, core.CategoryProduce, 5000, qty(10))
	f.expense(t, day, core.CategorySmallBottles, 3000, qty(100))
	f.sale(t, day, 2, core.BottleSizeHalf)

	status, err := f.reports.Inventory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	produce := status.Level(core.ItemProduce)
	if !produce.Remaining.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("produce remaining = %s, want 7.5", produce.Remaining)
	}
	bottles := status.Level(core.ItemSmallBottles)
	if !bottles.Remaining.Equal(decimal.NewFromInt(98)) || bottles.Low {
		t.Errorf("unexpected small bottle level %+v", bottles)
	}
}

func TestReportService_ReportCachesUntilChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	day := core.NewDate(2024, 3, 10)
	f.sale(t, day, 2, core.BottleSizeHalf)

	first, err := f.reports.Report(ctx, core.Weekly)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.reports.Report(ctx, core.Weekly); err != nil {
		t.Fatal(err)
	}
	if _, err := f.reports.Inventory(ctx); err != nil {
		t.Fatal(err)
	}
	if n := f.reader.fullLoads.Load(); n != 1 {
		t.Fatalf("expected one load while nothing changed, got %d", n)
	}
	if first.Totals.Income.Cents != 2000 || len(first.Buckets) != 1 {
		t.Fatalf("unexpected report %+v", first)
	}

	f.sale(t, day.AddDays(-7), 1, core.BottleSizeLiter)
	second, err := f.reports.Report(ctx, core.Weekly)
	if err != nil {
		t.Fatal(err)
	}
	if n := f.reader.fullLoads.Load(); n != 2 {
		t.Fatalf("expected a reload after the write, got %d loads", n)
	}
	if second.Totals.Income.Cents != 4000 || len(second.Buckets) != 2 {
		t.Fatalf("stale report after write: %+v", second)
	}
	if second.Best == nil || !second.Best.Key.Equal(core.NewDate(2024, 3, 4)) {
		t.Errorf("unexpected best bucket %+v", second.Best)
	}
}

func TestReportService_ReportRejectsUnknownPeriod(t *testing.T) {
	f := newFixture(t)
	if _, err := f.reports.Report(context.Background(), core.Period("yearly")); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestReportService_LoadError(t *testing.T) {
	boom := errors.New("boom")
	reader := &countingReader{RecordReader: memory.New(), err: boom}
	svc := NewReportService(reader, nil, WithReportCache(0, 0))

	if _, err := svc.Report(context.Background(), core.Daily); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if _, err := svc.Dashboard(context.Background(), core.Date{}); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if len(svc.Caches()) != 0 {
		t.Fatalf("caching should be disabled")
	}
}
