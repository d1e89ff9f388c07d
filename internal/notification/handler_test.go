package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/example/cafe-client/internal/domain/cart"
	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/events"
	"github.com/example/cafe-client/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockNotifier records notifications and can fail on demand.
type mockNotifier struct {
	sent []Notification
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, n Notification) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func mustEvent(t *testing.T, aggregateType, eventType string, data any) events.Event {
	t.Helper()
	e, err := events.New(aggregateType, "1", eventType, data)
	require.NoError(t, err)
	return e
}

// ============================================
// Event Mapping Tests
// ============================================

func TestHandler_HandleEvent(t *testing.T) {
	tests := []struct {
		name     string
		event    events.Event
		expected []Notification
	}{
		{
			name:  "order placed",
			event: mustEvent(t, order.AggregateType, order.EventOrderPlaced, order.OrderPlaced{OrderID: 12, TotalItems: 2}),
			expected: []Notification{
				{Level: LevelSuccess, Title: "Order Placed", Body: "Order #12 placed.", OrderID: 12},
			},
		},
		{
			name: "order completed",
			event: mustEvent(t, order.AggregateType, order.EventOrderStatusChanged,
				order.OrderStatusChanged{OrderID: 7, From: order.StatusPending, To: order.StatusCompleted, Auto: true}),
			expected: []Notification{
				{Level: LevelInfo, Title: "Order Ready", Body: "Order #7 is ready for collection.", OrderID: 7},
			},
		},
		{
			name: "order cancelled",
			event: mustEvent(t, order.AggregateType, order.EventOrderStatusChanged,
				order.OrderStatusChanged{OrderID: 9, From: order.StatusPending, To: order.StatusCancelled}),
			expected: []Notification{
				{Level: LevelWarning, Title: "Order Cancelled", Body: "Order #9 has been cancelled.", OrderID: 9},
			},
		},
		{
			name: "status change to pending is ignored",
			event: mustEvent(t, order.AggregateType, order.EventOrderStatusChanged,
				order.OrderStatusChanged{OrderID: 9, To: order.StatusPending}),
		},
		{
			name:  "cart events are ignored",
			event: mustEvent(t, cart.AggregateType, cart.EventCartCleared, cart.CartCleared{SessionID: "s"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			handler := NewHandler(notifier, logging.Discard())

			require.NoError(t, handler.HandleEvent(context.Background(), tt.event))
			assert.Equal(t, tt.expected, notifier.sent)
		})
	}
}

func TestHandler_HandleEvent_BadPayload(t *testing.T) {
	notifier := &mockNotifier{}
	handler := NewHandler(notifier, logging.Discard())

	event := events.Event{EventType: order.EventOrderPlaced, Data: json.RawMessage(`"not an object"`)}
	assert.Error(t, handler.HandleEvent(context.Background(), event))
	assert.Empty(t, notifier.sent)
}

func TestHandler_HandleEvent_NotifierError(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("terminal closed")}
	handler := NewHandler(notifier, logging.Discard())

	event := mustEvent(t, order.AggregateType, order.EventOrderPlaced, order.OrderPlaced{OrderID: 1})
	assert.Error(t, handler.HandleEvent(context.Background(), event))
}

func TestHandler_Subscribe(t *testing.T) {
	var buf bytes.Buffer
	handler := NewHandler(NewWriterNotifier(&buf), logging.Discard())
	bus := events.NewBus()
	unsubscribe := handler.Subscribe(bus)

	event := mustEvent(t, order.AggregateType, order.EventOrderStatusChanged,
		order.OrderStatusChanged{OrderID: 3, To: order.StatusCompleted})
	require.NoError(t, bus.Publish(context.Background(), event))
	assert.Equal(t, "[info] Order Ready: Order #3 is ready for collection.\n", buf.String())

	unsubscribe()
	require.NoError(t, bus.Publish(context.Background(), event))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

// ============================================
// Notifier Tests
// ============================================

func TestRender(t *testing.T) {
	assert.Equal(t, "[warning] Order Cancelled: Order #4 has been cancelled.", Render(OrderCancelled(4)))
	assert.Equal(t, "plain", Render(Notification{Body: "plain"}))
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, NewLogNotifier(logger).Notify(context.Background(), OrderReady(5)))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Order #5 is ready for collection.", line["msg"])
	assert.Equal(t, "Order Ready", line["title"])
	assert.Equal(t, float64(5), line["order_id"])
}
