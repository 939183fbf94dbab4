// Package records declares the ports through which services read and write
// sales, expenses and inventory movements.
package records

import (
	"context"

	"juicestand/internal/core"
)

// Filter narrows a listing. A nil Date lists every record.
type Filter struct {
	Date *core.Date
}

// OnDay is a Filter for a single calendar day.
func OnDay(d core.Date) Filter {
	return Filter{Date: &d}
}

// Match reports whether a record dated d passes the filter.
func (f Filter) Match(d core.Date) bool {
	return f.Date == nil || f.Date.Equal(d)
}

// Ports for the record store. Listings return records in insertion order.
// Deletes return the date of the removed record.
type (
	SaleStore interface {
		AddSale(ctx context.Context, s core.Sale) (id int64, err error)
		ListSales(ctx context.Context, f Filter) ([]core.Sale, error)
		DeleteSale(ctx context.Context, id int64) (core.Date, error)
	}

	ExpenseStore interface {
		AddExpense(ctx context.Context, e core.Expense) (id int64, err error)
		ListExpenses(ctx context.Context, f Filter) ([]core.Expense, error)
		DeleteExpense(ctx context.Context, id int64) (core.Date, error)
	}

	MovementStore interface {
		AddMovement(ctx context.Context, m core.InventoryMovement) (id int64, err error)
		ListMovements(ctx context.Context, f Filter) ([]core.InventoryMovement, error)
		DeleteMovement(ctx context.Context, id int64) (core.Date, error)
	}

	// Clearer wipes every record of every kind.
	Clearer interface {
		ClearAll(ctx context.Context) error
	}

	// Store is the full record store. WithinTx runs fn against a view of the
	// store whose writes commit together or not at all.
	Store interface {
		SaleStore
		ExpenseStore
		MovementStore
		Clearer
		WithinTx(ctx context.Context, fn func(tx Store) error) error
		Close() error
	}
)
