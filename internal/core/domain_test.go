package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2024, 6, 12) // Wednesday
	if got := d.StartOfWeek(time.Monday).String(); got != "2024-06-10" {
		t.Fatalf("start of week: got %s", got)
	}
	if got := d.StartOfWeek(time.Sunday).String(); got != "2024-06-09" {
		t.Fatalf("start of week (sunday): got %s", got)
	}
	if got := NewDate(2024, 6, 10).StartOfWeek(time.Monday).String(); got != "2024-06-10" {
		t.Fatalf("monday should start its own week, got %s", got)
	}
	if got := d.StartOfMonth().String(); got != "2024-06-01" {
		t.Fatalf("start of month: got %s", got)
	}
	if got := d.NextDay(d); !got.Equal(d) {
		t.Fatalf("next day must not pass today, got %s", got)
	}
	if got := d.PrevDay().NextDay(d); !got.Equal(d) {
		t.Fatalf("expected to step back to today, got %s", got)
	}
	p, err := ParseDate("2024-03-01")
	if err != nil || p.String() != "2024-03-01" {
		t.Fatalf("parse date: %v %v", p, err)
	}
	if _, err := ParseDate("03/01/2024"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestNewSaleDerivesTotals(t *testing.T) {
	cases := []struct {
		name    string
		bottles int
		price   Money
		size    BottleSize
		income  int64
		liters  string
		wantErr error
	}{
		{"half liter", 4, Money{Cents: 1000}, BottleSizeHalf, 4000, "2", nil},
		{"liter", 3, Money{Cents: 2000}, BottleSizeLiter, 6000, "3", nil},
		{"unspecified counts as half", 5, Money{Cents: 1000}, BottleSizeUnspecified, 5000, "2.5", nil},
		{"free bottles", 2, Money{}, BottleSizeHalf, 0, "1", nil},
		{"zero bottles", 0, Money{Cents: 1000}, BottleSizeHalf, 0, "", ErrInvalidBottles},
		{"negative price", 1, Money{Cents: -1}, BottleSizeHalf, 0, "", ErrInvalidAmount},
		{"odd size", 1, Money{Cents: 1}, BottleSize("2"), 0, "", ErrInvalidBottleSize},
		{"too many bottles", MaxBottlesPerSale + 1, Money{Cents: 1000}, BottleSizeHalf, 0, "", ErrInvalidBottles},
		{"huge bottle count", 1_000_000_000_000, Money{Cents: 1_000_000_000}, BottleSizeHalf, 0, "", ErrInvalidBottles},
		{"total overflows", MaxBottlesPerSale, Money{Cents: MaxCents/MaxBottlesPerSale + 1}, BottleSizeHalf, 0, "", ErrInvalidAmount},
		{"largest total", MaxBottlesPerSale, Money{Cents: MaxCents / MaxBottlesPerSale}, BottleSizeHalf, MaxBottlesPerSale * (MaxCents / MaxBottlesPerSale), "50000", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSale(NewDate(2024, 6, 1), tc.bottles, tc.price, tc.size, time.Now())
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.TotalIncome.Cents != tc.income {
				t.Fatalf("income: expected %d, got %d", tc.income, s.TotalIncome.Cents)
			}
			if !s.LitersSold.Equal(decimal.RequireFromString(tc.liters)) {
				t.Fatalf("liters: expected %s, got %s", tc.liters, s.LitersSold)
			}
			if err := s.Validate(); err != nil {
				t.Fatalf("derived sale should validate: %v", err)
			}
		})
	}
}

func TestParseBottleSize(t *testing.T) {
	cases := map[string]BottleSize{
		"":    BottleSizeUnspecified,
		"0.5": BottleSizeHalf,
		"0,5": BottleSizeHalf,
		"1":   BottleSizeLiter,
		"1.0": BottleSizeLiter,
	}
	for in, want := range cases {
		got, err := ParseBottleSize(in)
		if err != nil || got != want {
			t.Fatalf("%q: expected %q, got %q (err=%v)", in, want, got, err)
		}
	}
	if _, err := ParseBottleSize("0.75"); err == nil {
		t.Fatalf("expected error for 0.75")
	}
}

func TestExpenseStockMovement(t *testing.T) {
	day := NewDate(2024, 6, 1)
	cases := []struct {
		name     string
		category Category
		quantity decimal.NullDecimal
		wantItem Item
		want     bool
	}{
		{"produce with quantity", CategoryProduce, decimal.NewNullDecimal(decimal.NewFromInt(10)), ItemProduce, true},
		{"small bottles", CategorySmallBottles, decimal.NewNullDecimal(decimal.NewFromInt(50)), ItemSmallBottles, true},
		{"large bottles", CategoryLargeBottles, decimal.NewNullDecimal(decimal.NewFromInt(20)), ItemLargeBottles, true},
		{"produce without quantity", CategoryProduce, decimal.NullDecimal{}, "", false},
		{"produce with zero quantity", CategoryProduce, decimal.NewNullDecimal(decimal.Zero), "", false},
		{"transport ignores quantity", CategoryTransport, decimal.NewNullDecimal(decimal.NewFromInt(3)), "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewExpense(day, tc.category, Money{Cents: 5000}, tc.quantity, "", time.Now())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			m, ok := e.StockMovement()
			if ok != tc.want {
				t.Fatalf("expected movement=%v, got %v", tc.want, ok)
			}
			if !ok {
				return
			}
			if m.Item != tc.wantItem || !m.QuantityAdded.Equal(tc.quantity.Decimal) || !m.QuantityUsed.IsZero() {
				t.Fatalf("unexpected movement %+v", m)
			}
			if !m.Date.Equal(day) {
				t.Fatalf("movement should share the expense date, got %s", m.Date)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	bads := []Expense{
		{Date: Date{}, Category: CategoryOther, Amount: Money{Cents: 1}},
		{Date: NewDate(2025, 1, 1), Category: Category("oranges"), Amount: Money{Cents: 1}},
		{Date: NewDate(2025, 1, 1), Category: CategoryOther, Amount: Money{Cents: -1}},
		{Date: NewDate(2025, 1, 1), Category: CategoryProduce, Amount: Money{Cents: 1}, Quantity: decimal.NewNullDecimal(decimal.NewFromInt(-1))},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestSaleValidateRejectsWrappedTotal(t *testing.T) {
	s := Sale{
		Date:           NewDate(2024, 3, 10),
		BottlesSold:    MaxBottlesPerSale,
		PricePerBottle: Money{Cents: MaxCents},
		BottleSize:     BottleSizeHalf,
	}
	s.TotalIncome = Money{Cents: s.PricePerBottle.Cents * int64(s.BottlesSold)}
	if err := s.Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for an overflowing total, got %v", err)
	}
}
