package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/example/cafe-client/internal/api"
	"github.com/example/cafe-client/internal/api/mocks"
	"github.com/example/cafe-client/internal/domain/menu"
	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func testMenu() []menu.Item {
	return []menu.Item{
		{ID: 1, Name: "Latte", Price: 3.5, Category: "coffee", IsVeg: boolPtr(true),
			SizePrices: map[string]float64{"small": 2.99, "regular": 3.99, "large": 4.99}},
		{ID: 2, Name: "Bacon Roll", Price: 5, Category: "food", IsVeg: boolPtr(false)},
	}
}

type harness struct {
	t       *testing.T
	backend *mocks.Backend
	url     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := mocks.NewBackend(testMenu()...)
	srv := mocks.NewServer(t, backend)
	t.Setenv("CAFE_STORAGE_PATH", filepath.Join(t.TempDir(), "storage.json"))
	t.Setenv("KAFKA_BROKERS", "")
	return &harness{t: t, backend: backend, url: srv.URL}
}

// run executes one CLI invocation and returns its stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	out, _, err := h.runCLI(args...)
	return out, err
}

// runCLI is run that also hands back the cli for inspecting its app.
func (h *harness) runCLI(args ...string) (string, *cli, error) {
	h.t.Helper()
	c := newCLI()
	var out, errOut bytes.Buffer
	c.root.SetOut(&out)
	c.root.SetErr(&errOut)
	c.root.SetArgs(append([]string{"--api-url", h.url, "--storage", "file", "--log-level", "error"}, args...))
	err := c.execute(context.Background())
	return out.String(), c, err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "cafe %s", strings.Join(args, " "))
	return out
}

var orderNumber = regexp.MustCompile(`Your order number is (\d+)\.`)

// placeOrder adds one item, checks out and returns the order id as typed by
// a customer.
func (h *harness) placeOrder() string {
	h.t.Helper()
	h.mustRun("cart", "add", "2")
	out := h.mustRun("order", "place")
	m := orderNumber.FindStringSubmatch(out)
	require.Len(h.t, m, 2, out)
	return m[1]
}

// ============================================
// Storefront Tests
// ============================================

func TestCLI_Menu(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("menu")
	assert.Contains(t, out, "Categories: All, Veg, Non-Veg, coffee, food")
	assert.Contains(t, out, "Latte")
	assert.Contains(t, out, "regular $3.99")
	assert.Contains(t, out, "Bacon Roll")

	out = h.mustRun("menu", "--category", "Veg")
	assert.Contains(t, out, "Latte")
	assert.NotContains(t, out, "Bacon Roll")

	out = h.mustRun("menu", "1")
	assert.Contains(t, out, "regular")
	assert.Contains(t, out, "(default)")
}

func TestCLI_CartAndOrderFlow(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("cart")
	assert.Contains(t, out, "Your cart is empty.")

	out = h.mustRun("cart", "add", "1", "--quantity", "2")
	assert.Contains(t, out, "Latte")
	assert.Contains(t, out, "regular")
	assert.Contains(t, out, "2 items, total $7.98")

	out = h.mustRun("cart", "add", "2")
	assert.Contains(t, out, "3 items")

	out = h.mustRun("order", "place")
	m := orderNumber.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	assert.Contains(t, out, "Order placed successfully.")
	assert.Contains(t, out, "Order #"+m[1]+" placed.")

	id, err := strconv.ParseInt(m[1], 10, 64)
	require.NoError(t, err)
	placed, ok := h.backend.Order(id)
	require.True(t, ok)
	assert.Equal(t, 3, placed.TotalItems())

	out = h.mustRun("cart")
	assert.Contains(t, out, "Your cart is empty.", "cart cleared after checkout")

	out = h.mustRun("order", "track", m[1])
	assert.Contains(t, out, "Order #"+m[1])
	assert.Contains(t, out, "Preparing")
	assert.Contains(t, out, "remaining")
}

func TestCLI_CartValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("cart", "add", "1", "--quantity", "0")
	assert.EqualError(t, err, "quantity must be a positive integer")

	_, err = h.run("order", "place")
	assert.Error(t, err)
	assert.Zero(t, h.backend.Calls(api.OpCreateOrder), "empty cart never reaches the backend")
}

func TestCLI_TrackValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("order", "track", "abc")
	assert.EqualError(t, err, order.ErrInvalidOrderID.Error())

	_, err = h.run("order", "track", "9")
	assert.EqualError(t, err, "Order not found")
}

func TestCLI_Session(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("session")
	assert.Contains(t, out, "No stored session.")

	h.mustRun("cart")
	out = h.mustRun("session")
	assert.Contains(t, out, "Session:")

	before := out
	out = h.mustRun("session", "reset")
	assert.Contains(t, out, "Session:")
	assert.NotEqual(t, before, out)
}

// ============================================
// Admin Tests
// ============================================

func TestCLI_AdminCompleteAndList(t *testing.T) {
	h := newHarness(t)
	id := h.placeOrder()

	out := h.mustRun("admin", "list", "--status", "pending")
	assert.Contains(t, out, "#"+id)
	assert.Contains(t, out, "Preparing")

	out = h.mustRun("admin", "complete", id)
	assert.Contains(t, out, "Order #"+id+" has been marked as ready for collection.")
	assert.Contains(t, out, "Order #"+id+" is ready for collection.")

	_, err := h.run("admin", "cancel", id)
	assert.EqualError(t, err, order.ErrOrderCompleted.Error())

	out = h.mustRun("admin", "list")
	assert.Contains(t, out, "Ready for Collection")
	assert.Contains(t, out, "Please Collect")
}

func TestCLI_AdminCancel(t *testing.T) {
	h := newHarness(t)
	id := h.placeOrder()

	out := h.mustRun("admin", "cancel", id)
	assert.Contains(t, out, "Order #"+id+" has been marked as cancelled.")
	assert.Contains(t, out, "Order #"+id+" has been cancelled.")

	n, err := strconv.ParseInt(id, 10, 64)
	require.NoError(t, err)
	o, _ := h.backend.Order(n)
	assert.Equal(t, order.StatusCancelled, o.Status)
}

func TestCLI_AdminUnknownStatusFilter(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("admin", "list", "--status", "shipped")
	assert.ErrorIs(t, err, order.ErrUnknownStatus)
}

func TestCLI_ClosesStoreAfterFailedCommand(t *testing.T) {
	h := newHarness(t)

	_, c, err := h.runCLI("order", "track", "abc")
	require.Error(t, err)
	require.NotNil(t, c.app)
	assert.ErrorIs(t, c.app.kv.Set(context.Background(), "k", "v"), store.ErrClosed)
}

func TestCLI_ClosesStoreAfterSuccess(t *testing.T) {
	h := newHarness(t)

	_, c, err := h.runCLI("session")
	require.NoError(t, err)
	assert.ErrorIs(t, c.app.kv.Set(context.Background(), "k", "v"), store.ErrClosed)
}
