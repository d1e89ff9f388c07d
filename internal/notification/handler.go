// Package notification turns order events into messages for customers and
// staff.
package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/events"
)

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, n.Body, "level", string(n.Level), "title", n.Title, "order_id", n.OrderID)
	return nil
}

// WriterNotifier prints one rendered line per notification.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (w *WriterNotifier) Notify(ctx context.Context, n Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.w, Render(n))
	return err
}

// Handler processes events for sending notifications
type Handler struct {
	notifier Notifier
	logger   *slog.Logger
}

func NewHandler(notifier Notifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{notifier: notifier, logger: logger.With("component", "notifier")}
}

// EventTypes lists the events HandleEvent reacts to.
func EventTypes() []string {
	return []string{order.EventOrderPlaced, order.EventOrderStatusChanged}
}

// HandleEvent notifies for placed, completed and cancelled orders and
// ignores everything else.
func (h *Handler) HandleEvent(ctx context.Context, event events.Event) error {
	n, ok, err := Build(event)
	if err != nil {
		h.logger.Error("failed to decode event", "event_type", event.EventType, "event_id", event.ID, "error", err)
		return err
	}
	if !ok {
		return nil
	}
	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Error("failed to deliver notification", "order_id", n.OrderID, "error", err)
		return err
	}
	h.logger.Debug("notification sent", "order_id", n.OrderID, "title", n.Title)
	return nil
}

// Subscribe attaches the handler to an in-process bus.
func (h *Handler) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(func(ctx context.Context, event events.Event) {
		_ = h.HandleEvent(ctx, event)
	}, EventTypes()...)
}

// Build maps an event to its notification. ok is false for events that
// produce none.
func Build(event events.Event) (n Notification, ok bool, err error) {
	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := event.Decode(&e); err != nil {
			return Notification{}, false, err
		}
		return OrderPlaced(e.OrderID), true, nil

	case order.EventOrderStatusChanged:
		var e order.OrderStatusChanged
		if err := event.Decode(&e); err != nil {
			return Notification{}, false, err
		}
		switch e.To {
		case order.StatusCompleted:
			return OrderReady(e.OrderID), true, nil
		case order.StatusCancelled:
			return OrderCancelled(e.OrderID), true, nil
		}
	}
	return Notification{}, false, nil
}
