package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/example/cafe-client/internal/domain/cart"
)

func (c *Client) GetCart(ctx context.Context, sessionID string) (*cart.Summary, error) {
	var summary cart.Summary
	if err := c.do(ctx, OpGetCart, http.MethodGet, sessionPath(sessionID), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) AddCartItem(ctx context.Context, sessionID string, item cart.ItemCreate) (*cart.Summary, error) {
	var summary cart.Summary
	if err := c.do(ctx, OpAddCartItem, http.MethodPost, sessionPath(sessionID)+"/items", item, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, sessionID string, itemID int64, update cart.ItemUpdate) (*cart.Summary, error) {
	var summary cart.Summary
	path := sessionPath(sessionID) + "/items/" + strconv.FormatInt(itemID, 10)
	if err := c.do(ctx, OpUpdateCartItem, http.MethodPut, path, update, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, sessionID string, itemID int64) (*cart.Summary, error) {
	var summary cart.Summary
	path := sessionPath(sessionID) + "/items/" + strconv.FormatInt(itemID, 10)
	if err := c.do(ctx, OpRemoveCartItem, http.MethodDelete, path, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ClearCart empties the session's cart and returns the backend's message.
func (c *Client) ClearCart(ctx context.Context, sessionID string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, OpClearCart, http.MethodDelete, sessionPath(sessionID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
