package services

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"juicestand/internal/aggregate"
	"juicestand/internal/cache"
	"juicestand/internal/core"
	"juicestand/internal/log"
	"juicestand/internal/notify"
	"juicestand/internal/records"
)

// RecordReader is the read side of the record store.
type RecordReader interface {
	ListSales(ctx context.Context, f records.Filter) ([]core.Sale, error)
	ListExpenses(ctx context.Context, f records.Filter) ([]core.Expense, error)
	ListMovements(ctx context.Context, f records.Filter) ([]core.InventoryMovement, error)
}

// dataset is every record in the store at one point in time.
type dataset struct {
	sales     []core.Sale
	expenses  []core.Expense
	movements []core.InventoryMovement
}

// Dashboard is the home screen: one day, all-time totals and the trailing
// income and profit chart ending today.
type Dashboard struct {
	Day     core.DaySnapshot
	Prev    core.Date
	Next    core.Date
	IsToday bool
	AllTime core.Totals
	Series  []core.SeriesPoint
}

// DaySales lists one day's sales, newest first, with their tally.
type DaySales struct {
	Date  core.Date
	Sales []core.Sale
	Tally core.SalesTally
}

// DayExpenses lists one day's expenses, newest first, with their total.
type DayExpenses struct {
	Date     core.Date
	Expenses []core.Expense
	Total    core.Money
}

// ReportService answers every read-only question about the records. Loaded
// records and period reports are cached until the next change on the hub.
type ReportService struct {
	reader      RecordReader
	calendar    Calendar
	logger      *log.Logger
	datasets    *cache.LRUCache[dataset]
	reports     *cache.LRUCache[core.PeriodReport]
	generation  atomic.Uint64
	unsubscribe func()
}

type ReportOption func(*ReportService)

func WithReportCalendar(c Calendar) ReportOption {
	return func(s *ReportService) { s.calendar = c }
}

func WithReportLogger(l *log.Logger) ReportOption {
	return func(s *ReportService) { s.logger = l.WithComponent(log.ComponentReports) }
}

// WithReportCache sizes the caches. A size below one disables caching.
func WithReportCache(size int, ttl time.Duration) ReportOption {
	return func(s *ReportService) {
		if size < 1 {
			s.datasets, s.reports = nil, nil
			return
		}
		s.datasets = cache.NewLRUCache[dataset](size, ttl)
		s.reports = cache.NewLRUCache[core.PeriodReport](size, ttl)
	}
}

// NewReportService builds the service and, when hub is non-nil, subscribes
// to it so cached views are dropped after every write.
func NewReportService(reader RecordReader, hub *notify.Hub, opts ...ReportOption) *ReportService {
	s := &ReportService{
		reader:   reader,
		calendar: DefaultCalendar(),
		logger:   log.Discard(),
		datasets: cache.NewLRUCache[dataset](4, 5*time.Minute),
		reports:  cache.NewLRUCache[core.PeriodReport](16, 5*time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	if hub != nil {
		s.unsubscribe = hub.Subscribe(func(c notify.Change) { s.Invalidate() })
	}
	return s
}

// Caches returns the active caches so a cache.Manager can sweep them.
func (s *ReportService) Caches() []cache.Cleaner {
	var out []cache.Cleaner
	if s.datasets != nil {
		out = append(out, s.datasets)
	}
	if s.reports != nil {
		out = append(out, s.reports)
	}
	return out
}

// Invalidate drops every cached view. Loads already in flight keep their
// old generation and are never served again.
func (s *ReportService) Invalidate() {
	s.generation.Add(1)
	if s.datasets != nil {
		s.datasets.Purge()
	}
	if s.reports != nil {
		s.reports.Purge()
	}
}

func (s *ReportService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Today is the current calendar day.
func (s *ReportService) Today() core.Date {
	return s.calendar.Today()
}

func (s *ReportService) load(ctx context.Context) (dataset, error) {
	key := "all:" + strconv.FormatUint(s.generation.Load(), 10)
	if s.datasets != nil {
		if d, ok := s.datasets.Get(key); ok {
			return d, nil
		}
	}

	var d dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sales, err := s.reader.ListSales(gctx, records.Filter{})
		if err != nil {
			return fmt.Errorf("list sales: %w", err)
		}
		d.sales = sales
		return nil
	})
	g.Go(func() error {
		expenses, err := s.reader.ListExpenses(gctx, records.Filter{})
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		d.expenses = expenses
		return nil
	})
	g.Go(func() error {
		movements, err := s.reader.ListMovements(gctx, records.Filter{})
		if err != nil {
			return fmt.Errorf("list inventory movements: %w", err)
		}
		d.movements = movements
		return nil
	})
	if err := g.Wait(); err != nil {
		return dataset{}, err
	}

	if s.datasets != nil {
		s.datasets.Set(key, d)
	}
	s.logger.DebugContext(ctx, "Records loaded",
		"sales", len(d.sales), "expenses", len(d.expenses), "movements", len(d.movements))
	return d, nil
}

// Dashboard builds the home view for day. A zero day means today.
func (s *ReportService) Dashboard(ctx context.Context, day core.Date) (Dashboard, error) {
	today := s.calendar.Today()
	if day.IsZero() {
		day = today
	}
	d, err := s.load(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Day:     aggregate.DailySnapshot(d.sales, d.expenses, day),
		Prev:    day.PrevDay(),
		Next:    day.NextDay(today),
		IsToday: day.Equal(today),
		AllTime: aggregate.AllTimeTotals(d.sales, d.expenses),
		Series:  aggregate.TrailingSeries(d.sales, d.expenses, today, s.calendar.trailingDays()),
	}, nil
}

// Snapshot returns income, expenses and profit for day.
func (s *ReportService) Snapshot(ctx context.Context, day core.Date) (core.DaySnapshot, error) {
	d, err := s.load(ctx)
	if err != nil {
		return core.DaySnapshot{}, err
	}
	return aggregate.DailySnapshot(d.sales, d.expenses, day), nil
}

func (s *ReportService) DaySales(ctx context.Context, day core.Date) (DaySales, error) {
	if day.IsZero() {
		day = s.calendar.Today()
	}
	sales, err := s.reader.ListSales(ctx, records.OnDay(day))
	if err != nil {
		return DaySales{}, fmt.Errorf("list sales: %w", err)
	}
	sales = aggregate.SalesOnDay(sales, day)
	return DaySales{Date: day, Sales: sales, Tally: aggregate.TallySales(sales)}, nil
}

func (s *ReportService) DayExpenses(ctx context.Context, day core.Date) (DayExpenses, error) {
	if day.IsZero() {
		day = s.calendar.Today()
	}
	expenses, err := s.reader.ListExpenses(ctx, records.OnDay(day))
	if err != nil {
		return DayExpenses{}, fmt.Errorf("list expenses: %w", err)
	}
	expenses = aggregate.ExpensesOnDay(expenses, day)
	return DayExpenses{Date: day, Expenses: expenses, Total: aggregate.SumExpenses(expenses)}, nil
}

// Inventory estimates remaining stock of every item.
func (s *ReportService) Inventory(ctx context.Context) (core.InventoryStatus, error) {
	d, err := s.load(ctx)
	if err != nil {
		return core.InventoryStatus{}, err
	}
	return aggregate.EstimateInventory(d.movements, d.sales), nil
}

// Report groups every record by period.
func (s *ReportService) Report(ctx context.Context, period core.Period) (core.PeriodReport, error) {
	if !period.Valid() {
		return core.PeriodReport{}, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, period)
	}
	key := fmt.Sprintf("%d:%s:%d", s.generation.Load(), period, s.calendar.WeekStart)
	if s.reports != nil {
		if r, ok := s.reports.Get(key); ok {
			return r, nil
		}
	}
	d, err := s.load(ctx)
	if err != nil {
		return core.PeriodReport{}, err
	}
	r := aggregate.GroupByPeriod(d.sales, d.expenses, period, s.calendar.WeekStart)
	if s.reports != nil {
		s.reports.Set(key, r)
	}
	s.logger.DebugContext(ctx, "Report built", log.FieldPeriod, string(period), "buckets", len(r.Buckets))
	return r, nil
}
