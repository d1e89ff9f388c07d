package order

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/cafe-client/internal/domain/cart"
	"github.com/example/cafe-client/internal/domain/timestamp"
)

const AggregateType = "Order"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrInvalidStatus  = errors.New("invalid order status transition")
	ErrOrderCompleted = errors.New("order is already completed")
	ErrOrderCancelled = errors.New("order is already cancelled")
	ErrMissingOrderID = errors.New("please enter an order id")
	ErrInvalidOrderID = errors.New("please enter a valid order id")
	ErrUnknownStatus  = errors.New("unknown order status")
)

// validTransitions defines allowed state transitions
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {}, // terminal state
	StatusCancelled: {}, // terminal state
}

// ParseStatus accepts the three backend status values.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validTransitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	return ok && len(allowed) == 0
}

// Label maps a status to the text shown to customers.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Preparing"
	case StatusCompleted:
		return "Ready for Collection"
	case StatusCancelled:
		return "Cancelled"
	default:
		if s == "" {
			return ""
		}
		return strings.ToUpper(string(s[:1])) + string(s[1:])
	}
}

type Order struct {
	ID          int64          `json:"id"`
	CartID      int64          `json:"cart_id"`
	Status      Status         `json:"status"`
	TotalAmount float64        `json:"total_amount"`
	CreatedAt   timestamp.Time `json:"created_at"`
	Cart        cart.Cart      `json:"cart"`
}

// Confirmation is returned by POST /orders.
type Confirmation struct {
	Order   Order  `json:"order"`
	Message string `json:"message"`
}

// TotalItems sums quantities across the order's cart lines.
func (o *Order) TotalItems() int {
	return o.Cart.TotalQuantity()
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// transitionError returns an appropriate error for an invalid transition
func (o *Order) transitionError(target Status) error {
	switch o.Status {
	case StatusCompleted:
		return ErrOrderCompleted
	case StatusCancelled:
		return ErrOrderCancelled
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
	}
}

// Transition checks that o may move to target. The backend owns the actual
// state; this only keeps the client from issuing impossible requests.
func (o *Order) Transition(target Status) error {
	if !o.CanTransitionTo(target) {
		return o.transitionError(target)
	}
	return nil
}

// ParseID validates order id input typed by a customer.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrMissingOrderID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidOrderID
	}
	return id, nil
}
