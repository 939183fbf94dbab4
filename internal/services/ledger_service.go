package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"juicestand/internal/amqp"
	"juicestand/internal/core"
	"juicestand/internal/log"
	"juicestand/internal/notify"
	"juicestand/internal/records"
)

// ErrInvalidInput wraps every rejection of a record as entered.
var ErrInvalidInput = errors.New("invalid input")

// ErrStockNotRecorded is returned when an expense was saved but its
// inventory addition was not.
var ErrStockNotRecorded = errors.New("expense saved but inventory addition failed")

// ChangePublisher forwards record changes to other processes.
type ChangePublisher interface {
	PublishRecordChange(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// LedgerService records sales and expenses, keeps inventory additions in
// step with stock expenses and announces every change.
type LedgerService struct {
	store       records.Store
	hub         *notify.Hub
	publisher   ChangePublisher
	atomicStock bool
	calendar    Calendar
	logger      *log.Logger
}

type LedgerOption func(*LedgerService)

// WithPublisher also sends every change to p. Publish failures are logged
// and never fail the write.
func WithPublisher(p ChangePublisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

// WithAtomicStockWrites writes an expense and its inventory addition in one
// transaction.
func WithAtomicStockWrites(on bool) LedgerOption {
	return func(s *LedgerService) { s.atomicStock = on }
}

func WithCalendar(c Calendar) LedgerOption {
	return func(s *LedgerService) { s.calendar = c }
}

func WithLogger(l *log.Logger) LedgerOption {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

func NewLedgerService(store records.Store, hub *notify.Hub, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		store:    store,
		hub:      hub,
		calendar: DefaultCalendar(),
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaleInput is a sale as entered. A zero Date means today; a nil Price
// means the default price for the bottle size.
type SaleInput struct {
	Date       core.Date
	Bottles    int
	Price      *core.Money
	BottleSize core.BottleSize
}

func (s *LedgerService) AddSale(ctx context.Context, in SaleInput) (core.Sale, error) {
	if in.Date.IsZero() {
		in.Date = s.calendar.Today()
	}
	price := in.BottleSize.DefaultPrice()
	if in.Price != nil {
		price = *in.Price
	}
	sale, err := core.NewSale(in.Date, in.Bottles, price, in.BottleSize, s.calendar.now())
	if err != nil {
		return core.Sale{}, fmt.Errorf("%w: sale: %w", ErrInvalidInput, err)
	}
	id, err := s.store.AddSale(ctx, sale)
	if err != nil {
		return core.Sale{}, fmt.Errorf("save sale: %w", err)
	}
	sale.ID = id

	s.logger.InfoContext(ctx, "Sale recorded",
		log.FieldRecordID, id,
		log.FieldDate, sale.Date.String(),
		log.FieldBottles, sale.BottlesSold,
		log.FieldAmountCents, sale.TotalIncome.Cents)
	s.announce(ctx, notify.Change{Kind: notify.KindSale, Op: notify.OpCreate, ID: id, Date: sale.Date})
	return sale, nil
}

// ExpenseInput is an expense as entered. A zero Date means today.
type ExpenseInput struct {
	Date        core.Date
	Category    core.Category
	Amount      core.Money
	Quantity    decimal.NullDecimal
	Description string
}

// ExpenseResult is the stored expense and, for stock purchases, the
// inventory addition recorded with it.
type ExpenseResult struct {
	Expense  core.Expense
	Movement *core.InventoryMovement
}

// AddExpense saves the expense and, when it buys stock with a quantity, an
// inventory addition for the same day. Unless atomic stock writes are on,
// the two writes are independent: if the second fails the expense stays and
// ErrStockNotRecorded is returned alongside it.
func (s *LedgerService) AddExpense(ctx context.Context, in ExpenseInput) (ExpenseResult, error) {
	if in.Date.IsZero() {
		in.Date = s.calendar.Today()
	}
	e, err := core.NewExpense(in.Date, in.Category, in.Amount, in.Quantity, in.Description, s.calendar.now())
	if err != nil {
		return ExpenseResult{}, fmt.Errorf("%w: expense: %w", ErrInvalidInput, err)
	}
	movement, hasStock := e.StockMovement()

	var res ExpenseResult
	if s.atomicStock && hasStock {
		err = s.store.WithinTx(ctx, func(tx records.Store) error {
			var txErr error
			res, txErr = writeExpense(ctx, tx, e, movement, true)
			return txErr
		})
		if err != nil {
			return ExpenseResult{}, err
		}
	} else {
		res, err = writeExpense(ctx, s.store, e, movement, hasStock)
		if res.Expense.ID == 0 {
			return ExpenseResult{}, err
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Inventory addition failed after expense was saved",
				log.FieldRecordID, res.Expense.ID,
				log.FieldCategory, string(e.Category),
				log.FieldError, err)
		}
	}

	s.logger.InfoContext(ctx, "Expense recorded",
		log.FieldRecordID, res.Expense.ID,
		log.FieldDate, e.Date.String(),
		log.FieldCategory, string(e.Category),
		log.FieldAmountCents, e.Amount.Cents)
	s.announce(ctx, notify.Change{Kind: notify.KindExpense, Op: notify.OpCreate, ID: res.Expense.ID, Date: e.Date})
	if res.Movement != nil {
		s.announce(ctx, notify.Change{Kind: notify.KindMovement, Op: notify.OpCreate, ID: res.Movement.ID, Date: res.Movement.Date})
	}
	return res, err
}

// writeExpense stores e and, if withStock, m. A failed movement write keeps
// the stored expense in the result.
func writeExpense(ctx context.Context, store records.Store, e core.Expense, m core.InventoryMovement, withStock bool) (ExpenseResult, error) {
	id, err := store.AddExpense(ctx, e)
	if err != nil {
		return ExpenseResult{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id
	res := ExpenseResult{Expense: e}
	if !withStock {
		return res, nil
	}
	mid, err := store.AddMovement(ctx, m)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrStockNotRecorded, err)
	}
	m.ID = mid
	res.Movement = &m
	return res, nil
}

func (s *LedgerService) DeleteSale(ctx context.Context, id int64) error {
	date, err := s.store.DeleteSale(ctx, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	s.logger.InfoContext(ctx, "Sale deleted", log.FieldRecordID, id, log.FieldDate, date.String())
	s.announce(ctx, notify.Change{Kind: notify.KindSale, Op: notify.OpDelete, ID: id, Date: date})
	return nil
}

// DeleteExpense removes only the expense; an inventory addition recorded
// with it stays.
func (s *LedgerService) DeleteExpense(ctx context.Context, id int64) error {
	date, err := s.store.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldRecordID, id, log.FieldDate, date.String())
	s.announce(ctx, notify.Change{Kind: notify.KindExpense, Op: notify.OpDelete, ID: id, Date: date})
	return nil
}

func (s *LedgerService) DeleteMovement(ctx context.Context, id int64) error {
	date, err := s.store.DeleteMovement(ctx, id)
	if err != nil {
		return fmt.Errorf("delete inventory movement: %w", err)
	}
	s.logger.InfoContext(ctx, "Inventory movement deleted", log.FieldRecordID, id, log.FieldDate, date.String())
	s.announce(ctx, notify.Change{Kind: notify.KindMovement, Op: notify.OpDelete, ID: id, Date: date})
	return nil
}

// ClearAll wipes sales, expenses and inventory.
func (s *LedgerService) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	s.logger.WarnContext(ctx, "All records cleared", log.FieldOperation, log.OpClear)
	s.announce(ctx, notify.Change{Kind: notify.KindAll, Op: notify.OpClear})
	return nil
}

func (s *LedgerService) announce(ctx context.Context, c notify.Change) {
	if s.hub != nil {
		s.hub.Publish(c)
	}
	if s.publisher == nil {
		return
	}
	var date string
	if !c.Date.IsZero() {
		date = c.Date.String()
	}
	msg := amqp.NewRecordChangedMessage(string(c.Kind), string(c.Op), c.ID, date)
	if err := s.publisher.PublishRecordChange(ctx, msg); err != nil {
		// The write is committed locally; subscribers elsewhere just miss it.
		s.logger.ErrorContext(ctx, "Failed to publish record change",
			log.FieldMessageID, msg.MessageID,
			log.FieldRecordKind, msg.Kind,
			log.FieldError, err)
	}
}

// Close closes the store.
func (s *LedgerService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}
