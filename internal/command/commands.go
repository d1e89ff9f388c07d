package command

// Cart Commands
type AddToCart struct {
	MenuItemID int64  `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
	Size       string `json:"size,omitempty"`
}

type UpdateCartItem struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type RemoveFromCart struct {
	ItemID int64 `json:"item_id"`
}
