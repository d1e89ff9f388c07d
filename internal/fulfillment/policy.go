// Package fulfillment decides when pending orders are ready and drives them
// to completed on the backend. It also tracks when each order became ready
// so the admin board can tell collected orders from waiting ones.
package fulfillment

import (
	"fmt"
	"time"

	"github.com/example/cafe-client/internal/domain/order"
)

const (
	// LargeOrderThreshold is the item count above which an order gets the
	// longer preparation window.
	LargeOrderThreshold = 10

	SmallOrderDeadline = 5 * time.Minute
	LargeOrderDeadline = 10 * time.Minute

	// CollectionWindow is how long a completed order shows as waiting for
	// pickup.
	CollectionWindow = 2 * time.Minute

	DefaultInterval = 30 * time.Second
)

// Labels shown on the admin board.
const (
	LabelCompletingSoon = "Completing soon..."
	LabelPleaseCollect  = "Please Collect"
	LabelCollected      = "Collected"
)

// Deadline is the preparation window for an order of totalItems items.
func Deadline(totalItems int) time.Duration {
	if totalItems > LargeOrderThreshold {
		return LargeOrderDeadline
	}
	return SmallOrderDeadline
}

// Elapsed is the time since the order was created, never negative.
func Elapsed(o order.Order, now time.Time) time.Duration {
	d := now.Sub(o.CreatedAt.Time)
	if d < 0 {
		return 0
	}
	return d
}

// IsDue reports whether a pending order has reached its deadline. An order
// without a creation time is never due.
func IsDue(o order.Order, now time.Time) bool {
	if o.Status != order.StatusPending || o.CreatedAt.IsZero() {
		return false
	}
	return Elapsed(o, now) >= Deadline(o.TotalItems())
}

// Due filters orders down to those IsDue accepts.
func Due(orders []order.Order, now time.Time) []order.Order {
	var due []order.Order
	for _, o := range orders {
		if IsDue(o, now) {
			due = append(due, o)
		}
	}
	return due
}

// Remaining is the time left before a pending order is due. ok is false for
// orders that are not pending.
func Remaining(o order.Order, now time.Time) (d time.Duration, ok bool) {
	if o.Status != order.StatusPending {
		return 0, false
	}
	d = Deadline(o.TotalItems()) - Elapsed(o, now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// TimeRemaining renders Remaining for the board: "3m 12s remaining", or
// "Completing soon..." once the deadline has passed. Non-pending orders
// render as "".
func TimeRemaining(o order.Order, now time.Time) string {
	d, ok := Remaining(o, now)
	if !ok {
		return ""
	}
	if d <= 0 {
		return LabelCompletingSoon
	}
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%dm %ds remaining", minutes, seconds)
}

// CollectionStatus labels a completed order by how long ago it became ready.
func CollectionStatus(completedAt, now time.Time) string {
	if now.Sub(completedAt) < CollectionWindow {
		return LabelPleaseCollect
	}
	return LabelCollected
}
