package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/example/cafe-client/internal/api"
	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/events"
	"github.com/example/cafe-client/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownOrder = errors.New("order is not on the board")
	ErrInFlight     = errors.New("order update already in progress")
)

const tracerName = "github.com/example/cafe-client/internal/fulfillment"

// OrderAPI is the slice of the backend the monitor needs.
type OrderAPI interface {
	ListOrders(ctx context.Context, page api.Page) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error)
}

// Monitor keeps the admin board current and promotes pending orders to
// completed once IsDue holds. Failed promotions stay pending and are tried
// again on the next tick.
type Monitor struct {
	api       OrderAPI
	board     *Board
	index     *CompletionIndex
	publisher events.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	interval    time.Duration
	refresh     bool
	maxInFlight int
	page        api.Page

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

type Option func(*Monitor)

func WithPublisher(p events.Publisher) Option {
	return func(m *Monitor) { m.publisher = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

// WithRefresh controls whether each tick reloads the order list first.
func WithRefresh(refresh bool) Option {
	return func(m *Monitor) { m.refresh = refresh }
}

// WithMaxInFlight bounds concurrent status updates within a tick.
func WithMaxInFlight(n int) Option {
	return func(m *Monitor) { m.maxInFlight = n }
}

func WithPage(page api.Page) Option {
	return func(m *Monitor) { m.page = page }
}

func NewMonitor(orderAPI OrderAPI, board *Board, index *CompletionIndex, opts ...Option) *Monitor {
	m := &Monitor{
		api:         orderAPI,
		board:       board,
		index:       index,
		publisher:   events.Nop,
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
		interval:    DefaultInterval,
		refresh:     true,
		maxInFlight: 8,
		page:        api.Page{Limit: 100},
		inFlight:    make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxInFlight <= 0 {
		m.maxInFlight = 1
	}
	m.logger = m.logger.With("component", "monitor")
	return m
}

func (m *Monitor) Board() *Board {
	return m.board
}

// Refresh reloads the board from the backend and backfills completion
// times. On failure the board keeps its previous contents.
func (m *Monitor) Refresh(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "fulfillment.refresh")
	defer span.End()

	orders, err := m.api.ListOrders(ctx, m.page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list orders")
		return fmt.Errorf("load orders: %w", err)
	}
	m.board.Set(orders)
	span.SetAttributes(attribute.Int("orders.count", len(orders)))

	if n, err := m.index.Backfill(ctx, orders, m.now()); err != nil {
		m.logger.Warn("failed to backfill completion times", "error", err)
	} else if n > 0 {
		m.logger.Debug("backfilled completion times", "count", n)
	}
	return nil
}

// Tick runs one pass of the policy and returns how many orders it
// completed. Orders already being updated are skipped.
func (m *Monitor) Tick(ctx context.Context) int {
	ctx, span := m.tracer.Start(ctx, "fulfillment.tick")
	defer span.End()

	if m.refresh {
		if err := m.Refresh(ctx); err != nil {
			m.logger.Warn("refresh failed, using previous order list", "error", err)
		}
	}

	now := m.now()
	pending := m.board.Pending()
	metrics.PendingOrders.Set(float64(len(pending)))

	for _, o := range pending {
		if o.CreatedAt.IsZero() {
			m.logger.Warn("pending order has no creation time, not auto-completing", "order_id", o.ID)
		}
	}

	var due []order.Order
	for _, o := range Due(pending, now) {
		if m.claim(o.ID) {
			due = append(due, o)
		}
	}
	span.SetAttributes(
		attribute.Int("orders.pending", len(pending)),
		attribute.Int("orders.due", len(due)),
	)
	if len(due) == 0 {
		return 0
	}

	var (
		g         errgroup.Group
		mu        sync.Mutex
		completed int
	)
	g.SetLimit(m.maxInFlight)
	for _, o := range due {
		g.Go(func() error {
			defer m.release(o.ID)
			if _, err := m.transition(ctx, o, order.StatusCompleted, true); err != nil {
				metrics.OrderCompletionFailures.Inc()
				m.logger.Error("failed to auto-complete order", "order_id", o.ID, "error", err)
				return nil
			}
			metrics.OrdersAutoCompleted.Inc()
			mu.Lock()
			completed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(attribute.Int("orders.completed", completed))
	return completed
}

// Run ticks immediately and then every interval until ctx is done. The
// updates of the tick in progress finish before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("order monitor started", "interval", m.interval.String())
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if n := m.Tick(ctx); n > 0 {
			m.logger.Info("auto-completed orders", "count", n)
		}
		select {
		case <-ctx.Done():
			m.logger.Info("order monitor stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Complete marks a pending order ready for collection.
func (m *Monitor) Complete(ctx context.Context, id int64) (*order.Order, error) {
	return m.manual(ctx, id, order.StatusCompleted)
}

// Cancel cancels a pending order.
func (m *Monitor) Cancel(ctx context.Context, id int64) (*order.Order, error) {
	return m.manual(ctx, id, order.StatusCancelled)
}

func (m *Monitor) manual(ctx context.Context, id int64, target order.Status) (*order.Order, error) {
	o, ok := m.board.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: #%d", ErrUnknownOrder, id)
	}
	if err := o.Transition(target); err != nil {
		return nil, err
	}
	if !m.claim(id) {
		return nil, fmt.Errorf("%w: #%d", ErrInFlight, id)
	}
	defer m.release(id)
	return m.transition(ctx, o, target, false)
}

// transition sends the status update and applies the backend's answer.
func (m *Monitor) transition(ctx context.Context, o order.Order, target order.Status, auto bool) (*order.Order, error) {
	ctx, span := m.tracer.Start(ctx, "fulfillment.transition", trace.WithAttributes(
		attribute.Int64("order.id", o.ID),
		attribute.String("order.target", string(target)),
		attribute.Bool("order.auto", auto),
	))
	defer span.End()

	updated, err := m.api.UpdateOrderStatus(ctx, o.ID, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update status")
		return nil, err
	}

	m.board.Merge(*updated)
	now := m.now()
	if updated.Status == order.StatusCompleted {
		if err := m.index.Record(ctx, updated.ID, now); err != nil {
			m.logger.Warn("failed to record completion time", "order_id", updated.ID, "error", err)
		}
	}

	m.logger.Info("order status changed", "order_id", updated.ID, "from", o.Status, "to", updated.Status, "auto", auto)
	m.publish(ctx, order.OrderStatusChanged{
		OrderID:   updated.ID,
		From:      o.Status,
		To:        updated.Status,
		Auto:      auto,
		ChangedAt: now,
	})
	return updated, nil
}

func (m *Monitor) publish(ctx context.Context, data order.OrderStatusChanged) {
	event, err := events.New(order.AggregateType, strconv.FormatInt(data.OrderID, 10), order.EventOrderStatusChanged, data)
	if err != nil {
		m.logger.Error("failed to encode event", "error", err)
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("failed to publish event", "event_type", event.EventType, "error", err)
	}
}

func (m *Monitor) claim(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[id]; busy {
		return false
	}
	m.inFlight[id] = struct{}{}
	return true
}

func (m *Monitor) release(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, id)
}
