package order

import "time"

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderPlaced struct {
	OrderID     int64     `json:"order_id"`
	SessionID   string    `json:"session_id"`
	TotalAmount float64   `json:"total_amount"`
	TotalItems  int       `json:"total_items"`
	PlacedAt    time.Time `json:"placed_at"`
}

// OrderStatusChanged is emitted after the backend accepted a status update.
// Auto is true when the auto-completion policy triggered it.
type OrderStatusChanged struct {
	OrderID   int64     `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Auto      bool      `json:"auto"`
	ChangedAt time.Time `json:"changed_at"`
}
