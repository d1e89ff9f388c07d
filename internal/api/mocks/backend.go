// Package mocks provides an in-memory cafe backend that speaks the same REST
// contract as the real service, for tests that exercise api.Client end to end.
package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/cafe-client/internal/api"
	"github.com/example/cafe-client/internal/domain/cart"
	"github.com/example/cafe-client/internal/domain/menu"
	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/domain/timestamp"
)

// NetworkFailure makes an injected failure drop the connection instead of
// answering with a status.
const NetworkFailure = 0

// Backend is a fake cafe service. Orders placed through it are not removed
// from the cart; the client clears the cart itself.
type Backend struct {
	mu       sync.Mutex
	menu     map[int64]menu.Item
	carts    map[string]*cart.Cart
	orders   map[int64]*order.Order
	nextID   int64
	now      func() time.Time
	calls    map[string]int
	failures map[string][]int

	// Requests records every call in arrival order.
	Requests []Request
}

// Request records one call.
type Request struct {
	Op     string
	Method string
	Path   string
	Query  string
}

func NewBackend(items ...menu.Item) *Backend {
	b := &Backend{
		menu:     make(map[int64]menu.Item),
		carts:    make(map[string]*cart.Cart),
		orders:   make(map[int64]*order.Order),
		now:      time.Now,
		calls:    make(map[string]int),
		failures: make(map[string][]int),
	}
	for _, item := range items {
		b.menu[item.ID] = item
	}
	return b
}

// NewServer starts an httptest server for b, closed when the test ends.
func NewServer(t testing.TB, b *Backend) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// SetClock replaces time.Now for created_at stamps.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// FailNext makes the next n calls of op fail with status, or drop the
// connection when status is NetworkFailure.
func (b *Backend) FailNext(op string, status, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < n; i++ {
		b.failures[op] = append(b.failures[op], status)
	}
}

// Calls returns how many requests op received, failed ones included.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// TotalCalls counts every request.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Requests)
}

// SeedOrder stores o, assigning an id when it has none, and returns the id.
func (b *Backend) SeedOrder(o order.Order) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o.ID == 0 {
		o.ID = b.id()
	}
	if o.Status == "" {
		o.Status = order.StatusPending
	}
	b.orders[o.ID] = &o
	return o.ID
}

// Order returns a copy of the stored order.
func (b *Backend) Order(id int64) (order.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return order.Order{}, false
	}
	return *o, true
}

// Cart returns the summary the backend would serve for sessionID.
func (b *Backend) Cart(sessionID string) (cart.Summary, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.carts[sessionID]
	if !ok {
		return cart.Summary{}, false
	}
	return summarize(c), true
}

// DropCart forgets a session's cart, as a backend restart would.
func (b *Backend) DropCart(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.carts, sessionID)
}

func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}

// Handler routes the REST contract.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()

	// Menu
	mux.HandleFunc("/api/v1/menu", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			b.listMenu(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/menu/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			b.getMenuItem(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Cart
	mux.HandleFunc("/api/v1/cart/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(extractPathParam(r.URL.Path, "/api/v1/cart/"), "/")
		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			b.getCart(w, r, parts[0])
		case len(parts) == 1 && r.Method == http.MethodDelete:
			b.clearCart(w, r, parts[0])
		case len(parts) == 2 && parts[1] == "items" && r.Method == http.MethodPost:
			b.addItem(w, r, parts[0])
		case len(parts) == 3 && parts[1] == "items" && r.Method == http.MethodPut:
			b.updateItem(w, r, parts[0], parts[2])
		case len(parts) == 3 && parts[1] == "items" && r.Method == http.MethodDelete:
			b.removeItem(w, r, parts[0], parts[2])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Orders
	mux.HandleFunc("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			b.listOrders(w, r)
		case http.MethodPost:
			b.createOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/orders/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			b.getOrder(w, r)
		case http.MethodPut:
			b.updateStatus(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return mux
}

// intercept records the call and applies any queued failure. It returns
// true when the response has already been written.
func (b *Backend) intercept(w http.ResponseWriter, r *http.Request, op string) bool {
	b.calls[op]++
	b.Requests = append(b.Requests, Request{Op: op, Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery})

	queue := b.failures[op]
	if len(queue) == 0 {
		return false
	}
	status := queue[0]
	b.failures[op] = queue[1:]

	if status == NetworkFailure {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
				return true
			}
		}
		status = http.StatusBadGateway
	}
	respondError(w, http.StatusText(status), status)
	return true
}

// Menu handlers

func (b *Backend) listMenu(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpListMenu) {
		return
	}

	items := make([]menu.Item, 0, len(b.menu))
	for _, item := range b.menu {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	respondJSON(w, http.StatusOK, items)
}

func (b *Backend) getMenuItem(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpGetMenuItem) {
		return
	}

	id, err := strconv.ParseInt(extractPathParam(r.URL.Path, "/api/v1/menu/"), 10, 64)
	if err != nil {
		respondError(w, "Invalid menu item id", http.StatusUnprocessableEntity)
		return
	}
	item, ok := b.menu[id]
	if !ok {
		respondError(w, "Menu item not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Cart handlers

func (b *Backend) getCart(w http.ResponseWriter, r *http.Request, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpGetCart) {
		return
	}

	c, ok := b.carts[sessionID]
	if !ok {
		respondError(w, "Cart not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, summarize(c))
}

func (b *Backend) addItem(w http.ResponseWriter, r *http.Request, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpAddCartItem) {
		return
	}

	var req cart.ItemCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if req.Quantity <= 0 {
		respondError(w, "Quantity must be positive", http.StatusBadRequest)
		return
	}
	item, ok := b.menu[req.MenuItemID]
	if !ok {
		respondError(w, "Menu item not found", http.StatusNotFound)
		return
	}
	size := ""
	if req.SelectedSize != nil {
		size = *req.SelectedSize
		if item.HasSizes() {
			if _, ok := item.SizePrices[size]; !ok {
				respondError(w, "Invalid size", http.StatusBadRequest)
				return
			}
		}
	}

	c := b.cartFor(sessionID)
	for i := range c.Items {
		if c.Items[i].MenuItemID == req.MenuItemID && c.Items[i].Size() == size {
			c.Items[i].Quantity += req.Quantity
			respondJSON(w, http.StatusOK, summarize(c))
			return
		}
	}
	c.Items = append(c.Items, cart.Item{
		ID:           b.id(),
		MenuItemID:   item.ID,
		Quantity:     req.Quantity,
		SelectedSize: req.SelectedSize,
		ItemPrice:    item.PriceFor(size),
		MenuItem:     item,
	})
	respondJSON(w, http.StatusOK, summarize(c))
}

func (b *Backend) updateItem(w http.ResponseWriter, r *http.Request, sessionID, rawItemID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpUpdateCartItem) {
		return
	}

	var req cart.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if req.Quantity <= 0 {
		respondError(w, "Quantity must be positive", http.StatusBadRequest)
		return
	}
	c, idx, ok := b.findItem(sessionID, rawItemID)
	if !ok {
		respondError(w, "Cart item not found", http.StatusNotFound)
		return
	}
	c.Items[idx].Quantity = req.Quantity
	respondJSON(w, http.StatusOK, summarize(c))
}

func (b *Backend) removeItem(w http.ResponseWriter, r *http.Request, sessionID, rawItemID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpRemoveCartItem) {
		return
	}

	c, idx, ok := b.findItem(sessionID, rawItemID)
	if !ok {
		respondError(w, "Cart item not found", http.StatusNotFound)
		return
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	respondJSON(w, http.StatusOK, summarize(c))
}

func (b *Backend) clearCart(w http.ResponseWriter, r *http.Request, sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpClearCart) {
		return
	}

	if c, ok := b.carts[sessionID]; ok {
		c.Items = nil
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared successfully"})
}

func (b *Backend) cartFor(sessionID string) *cart.Cart {
	c, ok := b.carts[sessionID]
	if !ok {
		c = &cart.Cart{ID: b.id(), SessionID: sessionID, CreatedAt: timestamp.New(b.now())}
		b.carts[sessionID] = c
	}
	return c
}

func (b *Backend) findItem(sessionID, rawItemID string) (*cart.Cart, int, bool) {
	itemID, err := strconv.ParseInt(rawItemID, 10, 64)
	if err != nil {
		return nil, 0, false
	}
	c, ok := b.carts[sessionID]
	if !ok {
		return nil, 0, false
	}
	for i, item := range c.Items {
		if item.ID == itemID {
			return c, i, true
		}
	}
	return nil, 0, false
}

// Order handlers

func (b *Backend) createOrder(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpCreateOrder) {
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	c, ok := b.carts[sessionID]
	if !ok || len(c.Items) == 0 {
		respondError(w, "Cart is empty", http.StatusBadRequest)
		return
	}

	s := summarize(c)
	snapshot := s.Cart
	snapshot.Items = append([]cart.Item(nil), c.Items...)
	o := &order.Order{
		ID:          b.id(),
		CartID:      c.ID,
		Status:      order.StatusPending,
		TotalAmount: s.TotalAmount,
		CreatedAt:   timestamp.New(b.now()),
		Cart:        snapshot,
	}
	b.orders[o.ID] = o
	respondJSON(w, http.StatusOK, order.Confirmation{Order: *o, Message: "Order placed successfully"})
}

func (b *Backend) listOrders(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpListOrders) {
		return
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	orders := make([]order.Order, 0, len(b.orders))
	for _, o := range b.orders {
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })

	if skip > len(orders) {
		skip = len(orders)
	}
	orders = orders[skip:]
	if limit < len(orders) {
		orders = orders[:limit]
	}
	respondJSON(w, http.StatusOK, orders)
}

func (b *Backend) getOrder(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpGetOrder) {
		return
	}

	o, ok := b.lookupOrder(r)
	if !ok {
		respondError(w, "Order not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (b *Backend) updateStatus(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.intercept(w, r, api.OpUpdateOrderStatus) {
		return
	}

	status, err := order.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, "Invalid status", http.StatusBadRequest)
		return
	}
	o, ok := b.lookupOrder(r)
	if !ok {
		respondError(w, "Order not found", http.StatusNotFound)
		return
	}
	o.Status = status
	respondJSON(w, http.StatusOK, o)
}

func (b *Backend) lookupOrder(r *http.Request) (*order.Order, bool) {
	id, err := strconv.ParseInt(extractPathParam(r.URL.Path, "/api/v1/orders/"), 10, 64)
	if err != nil {
		return nil, false
	}
	o, ok := b.orders[id]
	return o, ok
}

func summarize(c *cart.Cart) cart.Summary {
	s := cart.Summary{Cart: *c}
	s.Cart.Items = append([]cart.Item{}, c.Items...)
	for _, item := range c.Items {
		s.TotalAmount += item.LineTotal()
		s.TotalItems += item.Quantity
	}
	return s
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes a FastAPI-style error body
func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// NewClient starts a server for b and returns a client for it. Keep-alives
// are off so a dropped connection is never retried by the transport.
func NewClient(t testing.TB, b *Backend, opts ...api.Option) *api.Client {
	t.Helper()
	srv := NewServer(t, b)
	httpClient := &http.Client{
		Transport: &http.Transport{DisableKeepAlives: true},
		Timeout:   5 * time.Second,
	}
	return api.NewClient(srv.URL, append([]api.Option{api.WithHTTPClient(httpClient)}, opts...)...)
}
