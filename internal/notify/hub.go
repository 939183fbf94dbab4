// Package notify fans record-store changes out to interested consumers so
// they can recompute derived views.
package notify

import (
	"sync"

	"juicestand/internal/core"
)

// Kind names the record kind a change touched.
type Kind string

const (
	KindSale     Kind = "sale"
	KindExpense  Kind = "expense"
	KindMovement Kind = "inventory_movement"
	KindAll      Kind = "all"
)

// Op names what happened to the record.
type Op string

const (
	OpCreate Op = "create"
	OpDelete Op = "delete"
	OpClear  Op = "clear"
)

// Change describes one committed store write. Date is the record's day when
// known; deletes by id and clears leave it zero.
type Change struct {
	Kind Kind
	Op   Op
	ID   int64
	Date core.Date
}

// Listener is invoked after each change. It runs on the publisher's
// goroutine and must not block.
type Listener func(Change)

type Hub struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
	order     []int
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[int]Listener)}
}

// Subscribe registers l and returns a function that unregisters it.
func (h *Hub) Subscribe(l Listener) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = l
	h.order = append(h.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.listeners, id)
			for i, v := range h.order {
				if v == id {
					h.order = append(h.order[:i], h.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers c to every listener in subscription order.
func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	ls := make([]Listener, 0, len(h.order))
	for _, id := range h.order {
		ls = append(ls, h.listeners[id])
	}
	h.mu.RUnlock()

	for _, l := range ls {
		l(c)
	}
}

// Len returns the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
