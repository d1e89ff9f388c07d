package query

import (
	"time"

	"github.com/example/cafe-client/internal/domain/menu"
	"github.com/example/cafe-client/internal/domain/order"
)

// MenuView is the menu as browsed under one category.
type MenuView struct {
	Category   string
	Categories []string
	Items      []menu.Item
}

type OrderLineView struct {
	Name      string
	Size      string
	Quantity  int
	UnitPrice float64
	LineTotal float64
}

// OrderView is an order prepared for display. TimeRemaining is set for
// pending orders and Collection for completed ones on the admin board.
type OrderView struct {
	ID            int64
	Status        order.Status
	StatusLabel   string
	TotalAmount   float64
	TotalItems    int
	CreatedAt     time.Time
	Lines         []OrderLineView
	TimeRemaining string
	Collection    string
}

func newOrderView(o order.Order) OrderView {
	v := OrderView{
		ID:          o.ID,
		Status:      o.Status,
		StatusLabel: o.Status.Label(),
		TotalAmount: o.TotalAmount,
		TotalItems:  o.TotalItems(),
		CreatedAt:   o.CreatedAt.Time,
		Lines:       make([]OrderLineView, 0, len(o.Cart.Items)),
	}
	for _, item := range o.Cart.Items {
		name := item.MenuItem.Name
		if name == "" {
			name = "Item #" + itoa(item.MenuItemID)
		}
		v.Lines = append(v.Lines, OrderLineView{
			Name:      name,
			Size:      item.Size(),
			Quantity:  item.Quantity,
			UnitPrice: item.ItemPrice,
			LineTotal: item.LineTotal(),
		})
	}
	return v
}
