// Package memory is an in-process record store, used by tests and by the
// "memory" data backend.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"juicestand/internal/core"
	"juicestand/internal/records"
)

type Store struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state state
}

type state struct {
	nextID    int64
	sales     []core.Sale
	expenses  []core.Expense
	movements []core.InventoryMovement
}

func (s state) clone() state {
	return state{
		nextID:    s.nextID,
		sales:     slices.Clone(s.sales),
		expenses:  slices.Clone(s.expenses),
		movements: slices.Clone(s.movements),
	}
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Close() error { return nil }

// WithinTx runs fn against the store and restores the previous contents if
// fn fails. Transactions are serialised with each other but not with plain
// writes.
func (s *Store) WithinTx(_ context.Context, fn func(tx records.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := s.state.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.state = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) AddSale(_ context.Context, sale core.Sale) (int64, error) {
	if err := sale.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nextID++
	sale.ID = s.state.nextID
	s.state.sales = append(s.state.sales, sale)
	return sale.ID, nil
}

func (s *Store) ListSales(_ context.Context, f records.Filter) ([]core.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Sale, 0, len(s.state.sales))
	for _, sale := range s.state.sales {
		if f.Match(sale.Date) {
			out = append(out, sale)
		}
	}
	return out, nil
}

func (s *Store) DeleteSale(_ context.Context, id int64) (core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.state.sales, func(x core.Sale) bool { return x.ID == id })
	if i < 0 {
		return core.Date{}, fmt.Errorf("sale id %d: %w", id, core.ErrNotFound)
	}
	date := s.state.sales[i].Date
	s.state.sales = slices.Delete(s.state.sales, i, i+1)
	return date, nil
}

func (s *Store) AddExpense(_ context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nextID++
	e.ID = s.state.nextID
	s.state.expenses = append(s.state.expenses, e)
	return e.ID, nil
}

func (s *Store) ListExpenses(_ context.Context, f records.Filter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.state.expenses))
	for _, e := range s.state.expenses {
		if f.Match(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) (core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.state.expenses, func(x core.Expense) bool { return x.ID == id })
	if i < 0 {
		return core.Date{}, fmt.Errorf("expense id %d: %w", id, core.ErrNotFound)
	}
	date := s.state.expenses[i].Date
	s.state.expenses = slices.Delete(s.state.expenses, i, i+1)
	return date, nil
}

func (s *Store) AddMovement(_ context.Context, m core.InventoryMovement) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.nextID++
	m.ID = s.state.nextID
	s.state.movements = append(s.state.movements, m)
	return m.ID, nil
}

func (s *Store) ListMovements(_ context.Context, f records.Filter) ([]core.InventoryMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.InventoryMovement, 0, len(s.state.movements))
	for _, m := range s.state.movements {
		if f.Match(m.Date) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) DeleteMovement(_ context.Context, id int64) (core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.state.movements, func(x core.InventoryMovement) bool { return x.ID == id })
	if i < 0 {
		return core.Date{}, fmt.Errorf("inventory movement id %d: %w", id, core.ErrNotFound)
	}
	date := s.state.movements[i].Date
	s.state.movements = slices.Delete(s.state.movements, i, i+1)
	return date, nil
}

// ClearAll drops every record. Ids keep increasing afterwards.
func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state{nextID: s.state.nextID}
	return nil
}
