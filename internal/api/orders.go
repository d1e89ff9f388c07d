package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/cafe-client/internal/domain/order"
)

// Page selects a slice of the order list. Zero fields are omitted from the
// query so the backend defaults apply.
type Page struct {
	Skip  int
	Limit int
}

// CreateOrder converts the session's cart into a pending order.
func (c *Client) CreateOrder(ctx context.Context, sessionID string) (*order.Confirmation, error) {
	var confirmation order.Confirmation
	path := "/api/v1/orders?" + url.Values{"session_id": {sessionID}}.Encode()
	if err := c.do(ctx, OpCreateOrder, http.MethodPost, path, nil, &confirmation); err != nil {
		return nil, err
	}
	return &confirmation, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	var o order.Order
	if err := c.do(ctx, OpGetOrder, http.MethodGet, idPath("/api/v1/orders/", id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) ListOrders(ctx context.Context, page Page) ([]order.Order, error) {
	params := url.Values{}
	if page.Skip > 0 {
		params.Set("skip", strconv.Itoa(page.Skip))
	}
	if page.Limit > 0 {
		params.Set("limit", strconv.Itoa(page.Limit))
	}
	path := "/api/v1/orders"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var orders []order.Order
	if err := c.do(ctx, OpListOrders, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error) {
	var o order.Order
	path := idPath("/api/v1/orders/", id) + "?" + url.Values{"status": {string(status)}}.Encode()
	if err := c.do(ctx, OpUpdateOrderStatus, http.MethodPut, path, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
