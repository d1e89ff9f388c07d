package fulfillment

import (
	"sort"
	"sync"

	"github.com/example/cafe-client/internal/domain/order"
)

// Counts tallies the board by status.
type Counts struct {
	Pending   int
	Completed int
	Cancelled int
}

// Board is the admin's local copy of the order list, newest first.
type Board struct {
	mu     sync.RWMutex
	orders []order.Order
}

func NewBoard() *Board {
	return &Board{}
}

// SortNewestFirst orders by created_at descending, then id descending.
func SortNewestFirst(orders []order.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i].CreatedAt.Time, orders[j].CreatedAt.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return orders[i].ID > orders[j].ID
	})
}

// Set replaces the board contents.
func (b *Board) Set(orders []order.Order) {
	sorted := append([]order.Order(nil), orders...)
	SortNewestFirst(sorted)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = sorted
}

// Merge replaces the entry with the same id, or adds o when absent.
func (b *Board) Merge(o order.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.orders {
		if b.orders[i].ID == o.ID {
			b.orders[i] = o
			return
		}
	}
	b.orders = append(b.orders, o)
	SortNewestFirst(b.orders)
}

// Get returns a copy of the order with id.
func (b *Board) Get(id int64) (order.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.orders {
		if o.ID == id {
			return o, true
		}
	}
	return order.Order{}, false
}

// Orders returns a copy of the board.
func (b *Board) Orders() []order.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]order.Order(nil), b.orders...)
}

// Filter returns the orders with status, or all of them for "".
func (b *Board) Filter(status order.Status) []order.Order {
	if status == "" {
		return b.Orders()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []order.Order
	for _, o := range b.orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// Pending is Filter(order.StatusPending).
func (b *Board) Pending() []order.Order {
	return b.Filter(order.StatusPending)
}

func (b *Board) Counts() Counts {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var c Counts
	for _, o := range b.orders {
		switch o.Status {
		case order.StatusPending:
			c.Pending++
		case order.StatusCompleted:
			c.Completed++
		case order.StatusCancelled:
			c.Cancelled++
		}
	}
	return c
}
