package http

import (
	"time"

	"github.com/shopspring/decimal"

	"juicestand/internal/aggregate"
	"juicestand/internal/core"
	"juicestand/internal/services"
)

// JSON shapes. Money is rendered as a fixed two-decimal string, quantities
// as decimal strings.

type saleView struct {
	ID             int64           `json:"id"`
	Date           string          `json:"date"`
	BottlesSold    int             `json:"bottlesSold"`
	PricePerBottle string          `json:"pricePerBottle"`
	TotalIncome    string          `json:"totalIncome"`
	LitersSold     decimal.Decimal `json:"litersSold"`
	BottleSize     string          `json:"bottleSize,omitempty"`
	Timestamp      int64           `json:"timestamp"`
}

func newSaleView(s core.Sale) saleView {
	return saleView{
		ID:             s.ID,
		Date:           s.Date.String(),
		BottlesSold:    s.BottlesSold,
		PricePerBottle: s.PricePerBottle.String(),
		TotalIncome:    s.TotalIncome.String(),
		LitersSold:     s.LitersSold,
		BottleSize:     string(s.BottleSize),
		Timestamp:      s.Timestamp.UnixMilli(),
	}
}

type expenseView struct {
	ID          int64            `json:"id"`
	Date        string           `json:"date"`
	Category    string           `json:"category"`
	Amount      string           `json:"amount"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Description string           `json:"description,omitempty"`
	Timestamp   int64            `json:"timestamp"`
}

func newExpenseView(e core.Expense) expenseView {
	v := expenseView{
		ID:          e.ID,
		Date:        e.Date.String(),
		Category:    string(e.Category),
		Amount:      e.Amount.String(),
		Description: e.Description,
		Timestamp:   e.Timestamp.UnixMilli(),
	}
	if e.Quantity.Valid {
		q := e.Quantity.Decimal
		v.Quantity = &q
	}
	return v
}

type movementView struct {
	ID            int64           `json:"id"`
	Date          string          `json:"date"`
	Item          string          `json:"item"`
	QuantityAdded decimal.Decimal `json:"quantityAdded"`
	QuantityUsed  decimal.Decimal `json:"quantityUsed"`
}

func newMovementView(m *core.InventoryMovement) *movementView {
	if m == nil {
		return nil
	}
	return &movementView{
		ID:            m.ID,
		Date:          m.Date.String(),
		Item:          string(m.Item),
		QuantityAdded: m.QuantityAdded,
		QuantityUsed:  m.QuantityUsed,
	}
}

type expenseCreatedView struct {
	Expense  expenseView   `json:"expense"`
	Movement *movementView `json:"movement,omitempty"`
	Warning  string        `json:"warning,omitempty"`
}

type snapshotView struct {
	Date     string `json:"date"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Profit   string `json:"profit"`
}

func newSnapshotView(s core.DaySnapshot) snapshotView {
	return snapshotView{
		Date:     s.Date.String(),
		Income:   s.Income.String(),
		Expenses: s.Expenses.String(),
		Profit:   s.Profit.String(),
	}
}

type totalsView struct {
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Profit   string `json:"profit"`
	Bottles  int    `json:"bottles"`
}

func newTotalsView(t core.Totals) totalsView {
	return totalsView{
		Income:   t.Income.String(),
		Expenses: t.Expenses.String(),
		Profit:   t.Profit.String(),
		Bottles:  t.Bottles,
	}
}

type seriesPointView struct {
	Date   string `json:"date"`
	Label  string `json:"label"`
	Income string `json:"income"`
	Profit string `json:"profit"`
}

type dashboardView struct {
	Day     snapshotView      `json:"day"`
	Prev    string            `json:"prev"`
	Next    string            `json:"next"`
	IsToday bool              `json:"isToday"`
	AllTime totalsView        `json:"allTime"`
	Series  []seriesPointView `json:"series"`
}

func newDashboardView(d services.Dashboard) dashboardView {
	v := dashboardView{
		Day:     newSnapshotView(d.Day),
		Prev:    d.Prev.String(),
		Next:    d.Next.String(),
		IsToday: d.IsToday,
		AllTime: newTotalsView(d.AllTime),
		Series:  make([]seriesPointView, 0, len(d.Series)),
	}
	for _, p := range d.Series {
		v.Series = append(v.Series, seriesPointView{
			Date:   p.Date.String(),
			Label:  p.Label,
			Income: p.Income.String(),
			Profit: p.Profit.String(),
		})
	}
	return v
}

type daySalesView struct {
	Date  string          `json:"date"`
	Sales []saleView      `json:"sales"`
	Tally salesTallyView  `json:"tally"`
}

type salesTallyView struct {
	Bottles int             `json:"bottles"`
	Liters  decimal.Decimal `json:"liters"`
	Income  string          `json:"income"`
}

func newDaySalesView(d services.DaySales) daySalesView {
	v := daySalesView{
		Date:  d.Date.String(),
		Sales: make([]saleView, 0, len(d.Sales)),
		Tally: salesTallyView{Bottles: d.Tally.Bottles, Liters: d.Tally.Liters, Income: d.Tally.Income.String()},
	}
	for _, s := range d.Sales {
		v.Sales = append(v.Sales, newSaleView(s))
	}
	return v
}

type dayExpensesView struct {
	Date     string        `json:"date"`
	Expenses []expenseView `json:"expenses"`
	Total    string        `json:"total"`
}

func newDayExpensesView(d services.DayExpenses) dayExpensesView {
	v := dayExpensesView{
		Date:     d.Date.String(),
		Expenses: make([]expenseView, 0, len(d.Expenses)),
		Total:    d.Total.String(),
	}
	for _, e := range d.Expenses {
		v.Expenses = append(v.Expenses, newExpenseView(e))
	}
	return v
}

type stockLevelView struct {
	Item      string          `json:"item"`
	Unit      string          `json:"unit"`
	Acquired  decimal.Decimal `json:"acquired"`
	Used      decimal.Decimal `json:"used"`
	Remaining decimal.Decimal `json:"remaining"`
	Low       bool            `json:"low"`
	Percent   decimal.Decimal `json:"percent"`
}

type inventoryView struct {
	Items []stockLevelView `json:"items"`
}

func newInventoryView(s core.InventoryStatus) inventoryView {
	v := inventoryView{Items: make([]stockLevelView, 0, len(s.Levels))}
	for _, l := range s.Levels {
		v.Items = append(v.Items, stockLevelView{
			Item:      string(l.Item),
			Unit:      l.Item.Unit(),
			Acquired:  l.Acquired,
			Used:      l.Used,
			Remaining: l.Remaining,
			Low:       l.Low,
			Percent:   l.Percent,
		})
	}
	return v
}

type bucketView struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
	Profit   string `json:"profit"`
	Bottles  int    `json:"bottles"`
}

type reportView struct {
	Period  string       `json:"period"`
	Buckets []bucketView `json:"buckets"`
	Totals  totalsView   `json:"totals"`
	Best    *bucketView  `json:"best,omitempty"`
}

func newBucketView(b core.PeriodBucket, p core.Period) bucketView {
	return bucketView{
		Key:      b.Key.String(),
		Label:    aggregate.PeriodLabel(b.Key, p),
		Income:   b.Income.String(),
		Expenses: b.Expenses.String(),
		Profit:   b.Profit.String(),
		Bottles:  b.Bottles,
	}
}

func newReportView(r core.PeriodReport) reportView {
	v := reportView{
		Period:  string(r.Period),
		Buckets: make([]bucketView, 0, len(r.Buckets)),
		Totals:  newTotalsView(r.Totals),
	}
	for _, b := range r.Buckets {
		v.Buckets = append(v.Buckets, newBucketView(b, r.Period))
	}
	if r.Best != nil {
		best := newBucketView(*r.Best, r.Period)
		v.Best = &best
	}
	return v
}

type healthView struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

func newHealthView(started time.Time) healthView {
	return healthView{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(started).Round(time.Second).String(),
	}
}
