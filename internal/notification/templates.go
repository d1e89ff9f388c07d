package notification

import (
	"fmt"
	"strings"
)

// Level mirrors the toast styles of the storefront.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message for a customer or the counter staff.
type Notification struct {
	Level   Level
	Title   string
	Body    string
	OrderID int64
}

// OrderPlaced builds the checkout confirmation.
func OrderPlaced(orderID int64) Notification {
	return Notification{
		Level:   LevelSuccess,
		Title:   "Order Placed",
		Body:    fmt.Sprintf("Order #%d placed.", orderID),
		OrderID: orderID,
	}
}

func OrderReady(orderID int64) Notification {
	return Notification{
		Level:   LevelInfo,
		Title:   "Order Ready",
		Body:    fmt.Sprintf("Order #%d is ready for collection.", orderID),
		OrderID: orderID,
	}
}

func OrderCancelled(orderID int64) Notification {
	return Notification{
		Level:   LevelWarning,
		Title:   "Order Cancelled",
		Body:    fmt.Sprintf("Order #%d has been cancelled.", orderID),
		OrderID: orderID,
	}
}

// Render formats n as a single terminal line, e.g.
// "[info] Order Ready: Order #3 is ready for collection."
func Render(n Notification) string {
	var b strings.Builder
	if n.Level != "" {
		fmt.Fprintf(&b, "[%s] ", n.Level)
	}
	if n.Title != "" {
		b.WriteString(n.Title)
		b.WriteString(": ")
	}
	b.WriteString(n.Body)
	return b.String()
}
