// Package command holds the cart controller: the one owner of local cart
// state for a client. Every mutation goes to the backend through the retry
// executor and the local snapshot is replaced by whatever the backend
// returns. Concurrent mutations are not serialised; the last response to
// arrive wins the snapshot.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/cafe-client/internal/api"
	"github.com/example/cafe-client/internal/apperr"
	"github.com/example/cafe-client/internal/domain/cart"
	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/events"
	"github.com/example/cafe-client/internal/infrastructure/store"
	"github.com/example/cafe-client/internal/retry"
	"github.com/example/cafe-client/internal/session"
)

// User-facing fallbacks when an error carries no readable message.
const (
	MsgLoadFailed   = "Failed to load cart. Please try again."
	MsgAddFailed    = "Failed to add item to cart"
	MsgUpdateFailed = "Failed to update cart item"
	MsgRemoveFailed = "Failed to remove item from cart"
	MsgClearFailed  = "Failed to clear cart"
	MsgOrderFailed  = "Failed to place order"
)

// CartAPI is the slice of the backend the controller needs.
type CartAPI interface {
	GetCart(ctx context.Context, sessionID string) (*cart.Summary, error)
	AddCartItem(ctx context.Context, sessionID string, item cart.ItemCreate) (*cart.Summary, error)
	UpdateCartItem(ctx context.Context, sessionID string, itemID int64, update cart.ItemUpdate) (*cart.Summary, error)
	RemoveCartItem(ctx context.Context, sessionID string, itemID int64) (*cart.Summary, error)
	ClearCart(ctx context.Context, sessionID string) (string, error)
	CreateOrder(ctx context.Context, sessionID string) (*order.Confirmation, error)
}

// Sessions provides the client identity.
type Sessions interface {
	EnsureValidSession(ctx context.Context) session.Session
	RecoverSession(ctx context.Context, maxInactive time.Duration) session.Session
	GetStoredSession(ctx context.Context) *session.Session
}

// State is a snapshot of the controller.
type State struct {
	Cart      *cart.Summary
	SessionID string
	Loading   bool
	// Err is the message of the last failure, cleared by the next success.
	Err string
}

type Handler struct {
	api         CartAPI
	sessions    Sessions
	publisher   events.Publisher
	logger      *slog.Logger
	retry       retry.Options
	maxInactive time.Duration

	mu    sync.RWMutex
	state State
}

type Option func(*Handler)

func WithPublisher(p events.Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithRetry sets the base policy. Name and Retryable are filled per call.
func WithRetry(opts retry.Options) Option {
	return func(h *Handler) { h.retry = opts }
}

// WithMaxInactive sets the window used when recovering a session.
func WithMaxInactive(d time.Duration) Option {
	return func(h *Handler) { h.maxInactive = d }
}

func NewHandler(cartAPI CartAPI, sessions Sessions, opts ...Option) *Handler {
	h := &Handler{
		api:         cartAPI,
		sessions:    sessions,
		publisher:   events.Nop,
		logger:      slog.Default(),
		retry:       retry.DefaultOptions(),
		maxInactive: session.DefaultMaxInactive,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "cart")
	return h
}

// State returns a copy of the current state.
func (h *Handler) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *Handler) SessionID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.SessionID
}

func (h *Handler) Cart() *cart.Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Cart
}

func (h *Handler) setLoading() {
	h.mu.Lock()
	h.state.Loading = true
	h.mu.Unlock()
}

func (h *Handler) setCart(summary *cart.Summary) {
	h.mu.Lock()
	h.state.Cart = summary
	h.state.Loading = false
	h.state.Err = ""
	h.mu.Unlock()
}

func (h *Handler) setError(msg string) {
	h.mu.Lock()
	h.state.Err = msg
	h.state.Loading = false
	h.mu.Unlock()
}

func (h *Handler) setSession(ctx context.Context, id, reason string) {
	h.mu.Lock()
	previous := h.state.SessionID
	h.state.SessionID = id
	h.mu.Unlock()

	if previous != "" && previous != id {
		h.logger.Info("session changed", "previous_id", previous, "session_id", id, "reason", reason)
		h.publish(ctx, session.AggregateType, id, session.EventSessionRecovered, session.SessionRecovered{
			PreviousID: previous,
			SessionID:  id,
			Reason:     reason,
		})
	}
}

// recoverSession switches to a recovered session and returns its id.
func (h *Handler) recoverSession(ctx context.Context, reason string) string {
	s := h.sessions.RecoverSession(ctx, h.maxInactive)
	h.setSession(ctx, s.ID, reason)
	return s.ID
}

func (h *Handler) options(name string, retryable func(error) bool) retry.Options {
	opts := h.retry
	opts.Name = name
	opts.Retryable = retryable
	opts.Logger = h.logger
	return opts
}

func (h *Handler) publish(ctx context.Context, aggregateType, aggregateID, eventType string, data any) {
	event, err := events.New(aggregateType, aggregateID, eventType, data)
	if err != nil {
		h.logger.Warn("failed to encode event", "event_type", eventType, "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish event", "event_type", eventType, "error", err)
	}
}

func (h *Handler) cartUpdated(ctx context.Context, sessionID, reason string, summary *cart.Summary) {
	h.setCart(summary)
	h.publish(ctx, cart.AggregateType, sessionID, cart.EventCartUpdated, cart.CartUpdated{
		SessionID:   sessionID,
		Reason:      reason,
		TotalItems:  summary.TotalItems,
		TotalAmount: summary.TotalAmount,
		Summary:     *summary,
	})
}

func (h *Handler) cartCleared(ctx context.Context, sessionID, reason string) {
	h.setCart(nil)
	h.publish(ctx, cart.AggregateType, sessionID, cart.EventCartCleared, cart.CartCleared{
		SessionID: sessionID,
		Reason:    reason,
	})
}

// Init establishes a valid session and loads its cart.
func (h *Handler) Init(ctx context.Context) error {
	s := h.sessions.EnsureValidSession(ctx)
	h.setSession(ctx, s.ID, "init")
	return h.Reload(ctx)
}

// Reload fetches the cart for the current session. A 404 means no cart yet.
// Any other failure triggers one session recovery and a single retry.
func (h *Handler) Reload(ctx context.Context) error {
	h.setLoading()
	sessionID := h.SessionID()

	notFound := func(err error) bool { return apperr.HasStatus(err, 404) }
	summary, err := retry.Do(ctx, h.options(api.OpGetCart, retry.Except(retry.IsRetryableError, notFound)),
		func(ctx context.Context) (*cart.Summary, error) {
			return h.api.GetCart(ctx, sessionID)
		})
	if err == nil {
		h.cartUpdated(ctx, sessionID, "loaded", summary)
		return nil
	}
	if notFound(err) {
		h.setCart(nil)
		return nil
	}

	h.logger.Warn("cart load failed, recovering session", "session_id", sessionID, "error", err)
	recoveredID := h.recoverSession(ctx, "load_failed")
	summary, err = h.api.GetCart(ctx, recoveredID)
	switch {
	case err == nil:
		h.cartUpdated(ctx, recoveredID, "loaded", summary)
		return nil
	case notFound(err):
		h.setCart(nil)
		return nil
	default:
		h.setError(MsgLoadFailed)
		return fmt.Errorf("load cart: %w", err)
	}
}

// AddToCart adds a menu item. A 401 or 404 triggers one session recovery
// and a single attempt with the recovered session.
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) error {
	if err := cart.ValidateQuantity(cmd.Quantity); err != nil {
		h.setError(cart.ErrInvalidQuantity.Error())
		return apperr.Validation(api.OpAddCartItem, err)
	}

	h.setLoading()
	sessionID := h.SessionID()
	req := cart.NewItemCreate(cmd.MenuItemID, cmd.Quantity, cmd.Size)

	summary, err := retry.Do(ctx, h.options(api.OpAddCartItem, retry.IsRetryableError),
		func(ctx context.Context) (*cart.Summary, error) {
			return h.api.AddCartItem(ctx, sessionID, req)
		})
	if err == nil {
		h.cartUpdated(ctx, sessionID, "item_added", summary)
		return nil
	}

	if apperr.HasStatus(err, 401, 404) {
		h.logger.Warn("add to cart rejected, recovering session", "session_id", sessionID, "error", err)
		recoveredID := h.recoverSession(ctx, "add_rejected")
		summary, rerr := h.api.AddCartItem(ctx, recoveredID, req)
		if rerr == nil {
			h.cartUpdated(ctx, recoveredID, "item_added", summary)
			return nil
		}
		h.logger.Error("add to cart failed after recovery", "session_id", recoveredID, "error", rerr)
	}

	h.setError(apperr.Message(err, MsgAddFailed))
	return err
}

func (h *Handler) UpdateCartItem(ctx context.Context, cmd UpdateCartItem) error {
	if err := cart.ValidateQuantity(cmd.Quantity); err != nil {
		h.setError(cart.ErrInvalidQuantity.Error())
		return apperr.Validation(api.OpUpdateCartItem, err)
	}

	h.setLoading()
	sessionID := h.SessionID()

	summary, err := retry.Do(ctx, h.options(api.OpUpdateCartItem, retry.IsRetryableError),
		func(ctx context.Context) (*cart.Summary, error) {
			return h.api.UpdateCartItem(ctx, sessionID, cmd.ItemID, cart.ItemUpdate{Quantity: cmd.Quantity})
		})
	if err != nil {
		h.setError(apperr.Message(err, MsgUpdateFailed))
		return err
	}
	h.cartUpdated(ctx, sessionID, "item_updated", summary)
	return nil
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) error {
	h.setLoading()
	sessionID := h.SessionID()

	summary, err := retry.Do(ctx, h.options(api.OpRemoveCartItem, retry.IsRetryableError),
		func(ctx context.Context) (*cart.Summary, error) {
			return h.api.RemoveCartItem(ctx, sessionID, cmd.ItemID)
		})
	if err != nil {
		h.setError(apperr.Message(err, MsgRemoveFailed))
		return err
	}
	h.cartUpdated(ctx, sessionID, "item_removed", summary)
	return nil
}

// ClearCart empties the cart on the backend and drops the local snapshot.
func (h *Handler) ClearCart(ctx context.Context) error {
	h.setLoading()
	sessionID := h.SessionID()

	_, err := retry.Do(ctx, h.options(api.OpClearCart, retry.IsRetryableError),
		func(ctx context.Context) (string, error) {
			return h.api.ClearCart(ctx, sessionID)
		})
	if err != nil {
		h.setError(apperr.Message(err, MsgClearFailed))
		return err
	}
	h.cartCleared(ctx, sessionID, "cleared")
	return nil
}

// PlaceOrder converts the cart into an order. An empty or unloaded cart is
// rejected without a request. Once the order exists, clearing the cart is
// best effort: a failure is logged and the local cart is dropped anyway.
func (h *Handler) PlaceOrder(ctx context.Context) (*order.Confirmation, error) {
	if h.Cart().IsEmpty() {
		h.setError(cart.ErrEmptyCart.Error())
		return nil, apperr.Validation(api.OpCreateOrder, cart.ErrEmptyCart)
	}

	h.setLoading()
	sessionID := h.SessionID()

	confirmation, err := retry.Do(ctx, h.options(api.OpCreateOrder, retry.Except(retry.IsRetryableError, retry.IsClientError)),
		func(ctx context.Context) (*order.Confirmation, error) {
			return h.api.CreateOrder(ctx, sessionID)
		})
	if err != nil {
		h.setError(apperr.Message(err, MsgOrderFailed))
		return nil, err
	}

	cleanup := h.options(api.OpClearCart, retry.IsRetryableError)
	cleanup.MaxAttempts = 2
	if err := retry.Run(ctx, cleanup, func(ctx context.Context) error {
		_, err := h.api.ClearCart(ctx, sessionID)
		return err
	}); err != nil {
		h.logger.Warn("failed to clear cart after order placement",
			"session_id", sessionID,
			"order_id", confirmation.Order.ID,
			"error", err,
		)
	}

	o := confirmation.Order
	h.publish(ctx, order.AggregateType, fmt.Sprint(o.ID), order.EventOrderPlaced, order.OrderPlaced{
		OrderID:     o.ID,
		SessionID:   sessionID,
		TotalAmount: o.TotalAmount,
		TotalItems:  o.TotalItems(),
		PlacedAt:    o.CreatedAt.Time,
	})
	h.cartCleared(ctx, sessionID, "order_placed")

	h.logger.Info("order placed", "order_id", o.ID, "session_id", sessionID, "total_amount", o.TotalAmount)
	return confirmation, nil
}

// Follow keeps the controller on the session stored by other processes
// sharing the same storage. It returns when ctx is done.
func (h *Handler) Follow(ctx context.Context, w store.Watcher) error {
	return w.Watch(ctx, func(key string) {
		if key != session.StorageKey {
			return
		}
		stored := h.sessions.GetStoredSession(ctx)
		if stored == nil {
			s := h.sessions.EnsureValidSession(ctx)
			if s.ID == h.SessionID() {
				return
			}
			h.setSession(ctx, s.ID, "cleared_elsewhere")
		} else if stored.ID == h.SessionID() {
			return
		} else {
			h.setSession(ctx, stored.ID, "changed_elsewhere")
		}
		if err := h.Reload(ctx); err != nil {
			h.logger.Warn("reload after session change failed", "error", err)
		}
	})
}
