package api

import (
	"context"
	"net/http"

	"github.com/example/cafe-client/internal/domain/menu"
)

func (c *Client) ListMenu(ctx context.Context) ([]menu.Item, error) {
	var items []menu.Item
	if err := c.do(ctx, OpListMenu, http.MethodGet, "/api/v1/menu", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetMenuItem(ctx context.Context, id int64) (*menu.Item, error) {
	var item menu.Item
	if err := c.do(ctx, OpGetMenuItem, http.MethodGet, idPath("/api/v1/menu/", id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
