// Package query serves the read side of the client: menu browsing, order
// tracking and the admin order list. Nothing here mutates backend state.
package query

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/example/cafe-client/internal/api"
	"github.com/example/cafe-client/internal/apperr"
	"github.com/example/cafe-client/internal/domain/menu"
	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/fulfillment"
)

// User-facing fallbacks when an error carries no readable message.
const (
	MsgMenuFailed   = "Failed to load menu items"
	MsgTrackFailed  = "Order not found. Please check your order ID and try again."
	MsgOrdersFailed = "Failed to load orders"
)

const opTrackOrder = "orders.track"

// API is the slice of the backend the read side needs.
type API interface {
	ListMenu(ctx context.Context) ([]menu.Item, error)
	GetMenuItem(ctx context.Context, id int64) (*menu.Item, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
	ListOrders(ctx context.Context, page api.Page) ([]order.Order, error)
}

type Handler struct {
	api    API
	index  *fulfillment.CompletionIndex
	logger *slog.Logger
	now    func() time.Time
	page   api.Page
}

type Option func(*Handler)

// WithCompletionIndex enables collection labels on the admin list.
func WithCompletionIndex(index *fulfillment.CompletionIndex) Option {
	return func(h *Handler) { h.index = index }
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func WithPage(page api.Page) Option {
	return func(h *Handler) { h.page = page }
}

func NewHandler(backend API, opts ...Option) *Handler {
	h := &Handler{
		api:    backend,
		logger: slog.Default(),
		now:    time.Now,
		page:   api.Page{Limit: 100},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "query")
	return h
}

// Menu

// Menu loads the menu and filters it to category; "" means All.
func (h *Handler) Menu(ctx context.Context, category string) (*MenuView, error) {
	items, err := h.api.ListMenu(ctx)
	if err != nil {
		h.logger.Error("failed to load menu items", "error", err)
		return nil, err
	}
	if category == "" {
		category = menu.CategoryAll
	}
	return &MenuView{
		Category:   category,
		Categories: menu.Categories(items),
		Items:      menu.Filter(items, category),
	}, nil
}

func (h *Handler) MenuItem(ctx context.Context, id int64) (*menu.Item, error) {
	return h.api.GetMenuItem(ctx, id)
}

// Orders

// TrackOrder looks up an order by the id a customer typed. Malformed input
// fails as a validation error without a request.
func (h *Handler) TrackOrder(ctx context.Context, raw string) (*OrderView, error) {
	id, err := order.ParseID(raw)
	if err != nil {
		return nil, apperr.Validation(opTrackOrder, err)
	}
	o, err := h.api.GetOrder(ctx, id)
	if err != nil {
		h.logger.Warn("order lookup failed", "order_id", id, "error", err)
		return nil, err
	}
	v := newOrderView(*o)
	v.TimeRemaining = fulfillment.TimeRemaining(*o, h.now())
	return &v, nil
}

// ListOrders returns orders newest first, limited to status unless it is "".
// Completed orders without a recorded completion time are backfilled.
func (h *Handler) ListOrders(ctx context.Context, status order.Status) ([]OrderView, error) {
	orders, err := h.api.ListOrders(ctx, h.page)
	if err != nil {
		h.logger.Error("failed to load orders", "error", err)
		return nil, err
	}
	fulfillment.SortNewestFirst(orders)

	now := h.now()
	if h.index != nil {
		if _, err := h.index.Backfill(ctx, orders, now); err != nil {
			h.logger.Warn("failed to backfill completion times", "error", err)
		}
	}

	var filtered []order.Order
	for _, o := range orders {
		if status == "" || o.Status == status {
			filtered = append(filtered, o)
		}
	}
	return h.AdminViews(ctx, filtered, now), nil
}

// AdminViews decorates orders with the countdown and collection labels.
func (h *Handler) AdminViews(ctx context.Context, orders []order.Order, now time.Time) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v := newOrderView(o)
		v.TimeRemaining = fulfillment.TimeRemaining(o, now)
		if h.index != nil {
			v.Collection = h.index.CollectionLabel(ctx, o, now)
		}
		views = append(views, v)
	}
	return views
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
