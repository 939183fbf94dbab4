package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// MaxBottlesPerSale caps one sale entry.
const MaxBottlesPerSale = 100_000

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// Expense categories. Produce and the two bottle categories are stock
// categories: an expense in one of them with a quantity also records an
// inventory addition.
const (
	CategoryProduce      Category = "produce"
	CategoryTransport    Category = "transport"
	CategorySmallBottles Category = "small_bottles"
	CategoryLargeBottles Category = "large_bottles"
	CategoryOther        Category = "other"
)

const (
	ItemProduce      Item = "produce"
	ItemSmallBottles Item = "small_bottles"
	ItemLargeBottles Item = "large_bottles"
)

// BottleSizeUnspecified is what older sales carry; it counts as a half liter.
const (
	BottleSizeUnspecified BottleSize = ""
	BottleSizeHalf        BottleSize = "0.5"
	BottleSizeLiter       BottleSize = "1"
)

type (
	Period     string
	Category   string
	Item       string
	BottleSize string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Sale struct {
		ID             int64
		Date           Date
		BottlesSold    int
		PricePerBottle Money
		TotalIncome    Money
		LitersSold     decimal.Decimal
		BottleSize     BottleSize
		Timestamp      time.Time
	}

	Expense struct {
		ID          int64
		Date        Date
		Category    Category
		Amount      Money
		Quantity    decimal.NullDecimal
		Description string
		Timestamp   time.Time
	}

	InventoryMovement struct {
		ID            int64
		Date          Date
		Item          Item
		QuantityAdded decimal.Decimal
		QuantityUsed  decimal.Decimal
		Timestamp     time.Time
	}
)

var (
	ErrInvalidDay        = errors.New("invalid day")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidBottles    = errors.New("invalid bottles sold")
	ErrInvalidBottleSize = errors.New("invalid bottle size")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidItem       = errors.New("invalid item")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrNotFound          = errors.New("record not found")
)

// Categories lists every expense category in display order.
func Categories() []Category {
	return []Category{CategoryProduce, CategoryTransport, CategorySmallBottles, CategoryLargeBottles, CategoryOther}
}

// Items lists every tracked stock item.
func Items() []Item {
	return []Item{ItemProduce, ItemSmallBottles, ItemLargeBottles}
}

func (p Period) Valid() bool {
	switch p {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryProduce, CategoryTransport, CategorySmallBottles, CategoryLargeBottles, CategoryOther:
		return true
	}
	return false
}

// StockItem returns the inventory item an expense category replenishes.
func (c Category) StockItem() (Item, bool) {
	switch c {
	case CategoryProduce:
		return ItemProduce, true
	case CategorySmallBottles:
		return ItemSmallBottles, true
	case CategoryLargeBottles:
		return ItemLargeBottles, true
	}
	return "", false
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

func (i Item) Valid() bool {
	switch i {
	case ItemProduce, ItemSmallBottles, ItemLargeBottles:
		return true
	}
	return false
}

// Unit is the display unit of the item's quantities.
func (i Item) Unit() string {
	if i == ItemProduce {
		return "kg"
	}
	return "bottles"
}

func (b BottleSize) Valid() bool {
	switch b {
	case BottleSizeUnspecified, BottleSizeHalf, BottleSizeLiter:
		return true
	}
	return false
}

// Liters is the volume of one bottle.
func (b BottleSize) Liters() decimal.Decimal {
	if b == BottleSizeLiter {
		return decimal.NewFromInt(1)
	}
	return decimal.New(5, -1)
}

// Normalized folds the unspecified size into the half liter it stands for.
func (b BottleSize) Normalized() BottleSize {
	if b == BottleSizeUnspecified {
		return BottleSizeHalf
	}
	return b
}

// DefaultPrice is the suggested price of one bottle of this size.
func (b BottleSize) DefaultPrice() Money {
	if b == BottleSizeLiter {
		return Money{Cents: 2000}
	}
	return Money{Cents: 1000}
}

// ParseBottleSize accepts "0.5", "0,5", ".5", "1", "1.0" and the empty string.
func ParseBottleSize(s string) (BottleSize, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return BottleSizeUnspecified, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidBottleSize, s)
	}
	switch {
	case d.Equal(decimal.New(5, -1)):
		return BottleSizeHalf, nil
	case d.Equal(decimal.NewFromInt(1)):
		return BottleSizeLiter, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBottleSize, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Equal compares calendar days only.
func (d Date) Equal(o Date) bool {
	return d.String() == o.String()
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.String() < o.String()
}

// StartOfWeek returns the most recent day on or before d falling on weekStart.
func (d Date) StartOfWeek(weekStart time.Weekday) Date {
	offset := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDays(-offset)
}

func (d Date) StartOfMonth() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// NextDay steps forward one day but never past today.
func (d Date) NextDay(today Date) Date {
	next := d.AddDays(1)
	if today.Before(next) {
		return d
	}
	return next
}

func (d Date) PrevDay() Date {
	return d.AddDays(-1)
}

// NewSale builds a sale, deriving total income and liters from the inputs.
func NewSale(date Date, bottles int, price Money, size BottleSize, ts time.Time) (Sale, error) {
	s := Sale{
		Date:           date,
		BottlesSold:    bottles,
		PricePerBottle: price,
		BottleSize:     size,
		Timestamp:      ts,
	}
	if err := s.validateInputs(); err != nil {
		return Sale{}, err
	}
	s.TotalIncome = price.Mul(int64(bottles))
	s.LitersSold = decimal.NewFromInt(int64(bottles)).Mul(size.Liters())
	return s, nil
}

func (s Sale) validateInputs() error {
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if s.BottlesSold < 1 {
		return fmt.Errorf("%w: must be at least 1", ErrInvalidBottles)
	}
	if s.BottlesSold > MaxBottlesPerSale {
		return fmt.Errorf("%w: at most %d per sale", ErrInvalidBottles, MaxBottlesPerSale)
	}
	if err := s.PricePerBottle.Validate(); err != nil {
		return err
	}
	if s.PricePerBottle.Cents > MaxCents/int64(s.BottlesSold) {
		return fmt.Errorf("%w: total income out of range", ErrInvalidAmount)
	}
	if !s.BottleSize.Valid() {
		return ErrInvalidBottleSize
	}
	return nil
}

func (s Sale) Validate() error {
	if err := s.validateInputs(); err != nil {
		return err
	}
	if s.TotalIncome.Cents != s.PricePerBottle.Cents*int64(s.BottlesSold) {
		return fmt.Errorf("%w: total income does not match bottles x price", ErrInvalidAmount)
	}
	return nil
}

// NewExpense builds an expense. A quantity is dropped for non-stock
// categories.
func NewExpense(date Date, category Category, amount Money, quantity decimal.NullDecimal, description string, ts time.Time) (Expense, error) {
	e := Expense{
		Date:        date,
		Category:    category,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		Timestamp:   ts,
	}
	if _, ok := category.StockItem(); ok {
		e.Quantity = quantity
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Quantity.Valid && e.Quantity.Decimal.IsNegative() {
		return ErrInvalidQuantity
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// StockMovement returns the inventory addition implied by the expense: a
// stock category with a non-zero quantity.
func (e Expense) StockMovement() (InventoryMovement, bool) {
	item, ok := e.Category.StockItem()
	if !ok || !e.Quantity.Valid || e.Quantity.Decimal.IsZero() {
		return InventoryMovement{}, false
	}
	return InventoryMovement{
		Date:          e.Date,
		Item:          item,
		QuantityAdded: e.Quantity.Decimal,
		QuantityUsed:  decimal.Zero,
		Timestamp:     e.Timestamp,
	}, true
}

func (m InventoryMovement) Validate() error {
	if err := m.Date.Validate(); err != nil {
		return err
	}
	if !m.Item.Valid() {
		return ErrInvalidItem
	}
	if m.QuantityAdded.IsNegative() || m.QuantityUsed.IsNegative() {
		return ErrInvalidQuantity
	}
	return nil
}
