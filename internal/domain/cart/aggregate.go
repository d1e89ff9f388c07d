package cart

import (
	"errors"

	"github.com/example/cafe-client/internal/domain/menu"
	"github.com/example/cafe-client/internal/domain/timestamp"
)

const AggregateType = "Cart"

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrEmptyCart       = errors.New("cannot place order: cart is empty")
)

// Item is one cart line. ItemPrice is the size-specific price captured when
// the line was added, not a live reference to the menu.
type Item struct {
	ID           int64     `json:"id"`
	MenuItemID   int64     `json:"menu_item_id"`
	Quantity     int       `json:"quantity"`
	SelectedSize *string   `json:"selected_size,omitempty"`
	ItemPrice    float64   `json:"item_price"`
	MenuItem     menu.Item `json:"menu_item"`
}

// Size returns the selected size or "".
func (i Item) Size() string {
	if i.SelectedSize == nil {
		return ""
	}
	return *i.SelectedSize
}

// LineTotal is ItemPrice * Quantity, for display only.
func (i Item) LineTotal() float64 {
	return i.ItemPrice * float64(i.Quantity)
}

// Cart is the server-owned aggregate keyed by session id.
type Cart struct {
	ID        int64          `json:"id"`
	SessionID string         `json:"session_id"`
	CreatedAt timestamp.Time `json:"created_at"`
	Items     []Item         `json:"cart_items"`
}

// TotalQuantity sums quantities across lines.
func (c Cart) TotalQuantity() int {
	var total int
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Summary wraps a cart with the totals computed by the backend. The client
// trusts them as-is.
type Summary struct {
	Cart        Cart    `json:"cart"`
	TotalAmount float64 `json:"total_amount"`
	TotalItems  int     `json:"total_items"`
}

// IsEmpty reports whether an order can not be placed from s.
func (s *Summary) IsEmpty() bool {
	return s == nil || s.TotalItems <= 0
}

// DisplayTotal recomputes the amount from line prices for display.
func (s *Summary) DisplayTotal() float64 {
	if s == nil {
		return 0
	}
	var total float64
	for _, item := range s.Cart.Items {
		total += item.LineTotal()
	}
	return total
}

// Find returns the line with the given id.
func (s *Summary) Find(itemID int64) (Item, bool) {
	if s == nil {
		return Item{}, false
	}
	for _, item := range s.Cart.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return Item{}, false
}

// ItemCreate is the body of POST /cart/{sessionId}/items.
type ItemCreate struct {
	MenuItemID   int64   `json:"menu_item_id"`
	Quantity     int     `json:"quantity"`
	SelectedSize *string `json:"selected_size"`
}

// NewItemCreate builds an add request; an empty size is sent as null.
func NewItemCreate(menuItemID int64, quantity int, size string) ItemCreate {
	req := ItemCreate{MenuItemID: menuItemID, Quantity: quantity}
	if size != "" {
		req.SelectedSize = &size
	}
	return req
}

// ItemUpdate is the body of PUT /cart/{sessionId}/items/{itemId}.
type ItemUpdate struct {
	Quantity int `json:"quantity"`
}

// ValidateQuantity rejects non-positive quantities.
func ValidateQuantity(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
