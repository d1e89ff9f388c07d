package fulfillment

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/domain/timestamp"
	"github.com/example/cafe-client/internal/infrastructure/store"
)

// CompletionStorageKey holds a JSON object mapping order id to the ISO time
// the order was seen completing.
const CompletionStorageKey = "cafe_order_completion_times"

// CompletionIndex records when orders became ready for collection. Writes
// are read-modify-write on a single key; two processes sharing a store can
// lose each other's entries, and the last writer wins.
type CompletionIndex struct {
	kv     store.KV
	logger *slog.Logger

	mu sync.Mutex
}

func NewCompletionIndex(kv store.KV, logger *slog.Logger) *CompletionIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionIndex{kv: kv, logger: logger.With("component", "completion_index")}
}

// load reads the map. Missing or unreadable data reads as empty.
func (c *CompletionIndex) load(ctx context.Context) map[string]string {
	times := make(map[string]string)
	raw, ok, err := c.kv.Get(ctx, CompletionStorageKey)
	if err != nil {
		c.logger.Warn("failed to read completion times", "error", err)
		return times
	}
	if !ok || raw == "" {
		return times
	}
	if err := json.Unmarshal([]byte(raw), &times); err != nil {
		c.logger.Warn("discarding corrupt completion times", "error", err)
		return make(map[string]string)
	}
	return times
}

func (c *CompletionIndex) save(ctx context.Context, times map[string]string) error {
	raw, err := json.Marshal(times)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, CompletionStorageKey, string(raw))
}

// Get returns the recorded completion time of an order.
func (c *CompletionIndex) Get(ctx context.Context, orderID int64) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(c.load(ctx), orderID)
}

func (c *CompletionIndex) get(times map[string]string, orderID int64) (time.Time, bool) {
	raw, ok := times[strconv.FormatInt(orderID, 10)]
	if !ok {
		return time.Time{}, false
	}
	t, err := timestamp.Parse(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Record stores at as the completion time of an order, replacing any
// earlier entry.
func (c *CompletionIndex) Record(ctx context.Context, orderID int64, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	times := c.load(ctx)
	times[strconv.FormatInt(orderID, 10)] = timestamp.Format(at)
	return c.save(ctx, times)
}

// Backfill gives every completed order without an entry a completion time
// of now and returns how many were added.
func (c *CompletionIndex) Backfill(ctx context.Context, orders []order.Order, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	times := c.load(ctx)
	added := 0
	for _, o := range orders {
		if o.Status != order.StatusCompleted {
			continue
		}
		if _, ok := c.get(times, o.ID); ok {
			continue
		}
		times[strconv.FormatInt(o.ID, 10)] = timestamp.Format(now)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, c.save(ctx, times)
}

// CollectionLabel returns "Please Collect" or "Collected" for a completed
// order and "" for any other. A completed order with no entry is recorded
// as completing now.
func (c *CompletionIndex) CollectionLabel(ctx context.Context, o order.Order, now time.Time) string {
	if o.Status != order.StatusCompleted {
		return ""
	}
	at, ok := c.Get(ctx, o.ID)
	if !ok {
		if err := c.Record(ctx, o.ID, now); err != nil {
			c.logger.Warn("failed to record completion time", "order_id", o.ID, "error", err)
		}
		return LabelPleaseCollect
	}
	return CollectionStatus(at, now)
}
