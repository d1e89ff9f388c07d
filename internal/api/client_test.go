package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/cafe-client/internal/apperr"
	"github.com/example/cafe-client/internal/domain/cart"
	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// newTestServer answers every request with status and body and records
// what it received.
func newTestServer(t *testing.T, status int, body string) (*Client, *[]recorded) {
	t.Helper()
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recorded{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery, Body: string(data)})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithLogger(logging.Discard())), &reqs
}

const summaryJSON = `{"cart":{"id":1,"session_id":"s-1","cart_items":[{"id":3,"menu_item_id":10,"quantity":2,"selected_size":"regular","item_price":3.99}]},"total_amount":7.98,"total_items":2}`

const orderJSON = `{"id":9,"cart_id":1,"status":"pending","total_amount":7.98,"created_at":"2025-03-01T10:00:00","cart":{"id":1,"session_id":"s-1","cart_items":[]}}`

// ============================================
// Request Shape Tests
// ============================================

func TestClient_Requests(t *testing.T) {
	ctx := context.Background()
	size := "regular"

	tests := []struct {
		name   string
		body   string
		call   func(c *Client) error
		expect recorded
	}{
		{
			name:   "list menu",
			body:   `[]`,
			call:   func(c *Client) error { _, err := c.ListMenu(ctx); return err },
			expect: recorded{Method: "GET", Path: "/api/v1/menu"},
		},
		{
			name:   "get menu item",
			body:   `{"id":4,"name":"Mocha","price":4}`,
			call:   func(c *Client) error { _, err := c.GetMenuItem(ctx, 4); return err },
			expect: recorded{Method: "GET", Path: "/api/v1/menu/4"},
		},
		{
			name:   "get cart",
			body:   summaryJSON,
			call:   func(c *Client) error { _, err := c.GetCart(ctx, "s-1"); return err },
			expect: recorded{Method: "GET", Path: "/api/v1/cart/s-1"},
		},
		{
			name: "add item",
			body: summaryJSON,
			call: func(c *Client) error {
				_, err := c.AddCartItem(ctx, "s-1", cart.ItemCreate{MenuItemID: 10, Quantity: 2, SelectedSize: &size})
				return err
			},
			expect: recorded{Method: "POST", Path: "/api/v1/cart/s-1/items", Body: `{"menu_item_id":10,"quantity":2,"selected_size":"regular"}`},
		},
		{
			name: "update item",
			body: summaryJSON,
			call: func(c *Client) error {
				_, err := c.UpdateCartItem(ctx, "s-1", 3, cart.ItemUpdate{Quantity: 5})
				return err
			},
			expect: recorded{Method: "PUT", Path: "/api/v1/cart/s-1/items/3", Body: `{"quantity":5}`},
		},
		{
			name:   "remove item",
			body:   summaryJSON,
			call:   func(c *Client) error { _, err := c.RemoveCartItem(ctx, "s-1", 3); return err },
			expect: recorded{Method: "DELETE", Path: "/api/v1/cart/s-1/items/3"},
		},
		{
			name:   "clear cart",
			body:   `{"message":"Cart cleared"}`,
			call:   func(c *Client) error { _, err := c.ClearCart(ctx, "s-1"); return err },
			expect: recorded{Method: "DELETE", Path: "/api/v1/cart/s-1"},
		},
		{
			name:   "create order",
			body:   `{"order":` + orderJSON + `,"message":"ok"}`,
			call:   func(c *Client) error { _, err := c.CreateOrder(ctx, "s-1"); return err },
			expect: recorded{Method: "POST", Path: "/api/v1/orders", Query: "session_id=s-1"},
		},
		{
			name:   "get order",
			body:   orderJSON,
			call:   func(c *Client) error { _, err := c.GetOrder(ctx, 9); return err },
			expect: recorded{Method: "GET", Path: "/api/v1/orders/9"},
		},
		{
			name:   "list orders without paging",
			body:   `[]`,
			call:   func(c *Client) error { _, err := c.ListOrders(ctx, Page{}); return err },
			expect: recorded{Method: "GET", Path: "/api/v1/orders"},
		},
		{
			name:   "list orders with paging",
			body:   `[]`,
			call:   func(c *Client) error { _, err := c.ListOrders(ctx, Page{Skip: 20, Limit: 10}); return err },
			expect: recorded{Method: "GET", Path: "/api/v1/orders", Query: "limit=10&skip=20"},
		},
		{
			name:   "update order status",
			body:   orderJSON,
			call:   func(c *Client) error { _, err := c.UpdateOrderStatus(ctx, 9, order.StatusCompleted); return err },
			expect: recorded{Method: "PUT", Path: "/api/v1/orders/9", Query: "status=completed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, reqs := newTestServer(t, http.StatusOK, tt.body)
			require.NoError(t, tt.call(client))
			require.Len(t, *reqs, 1)

			got := (*reqs)[0]
			assert.Equal(t, tt.expect.Method, got.Method)
			assert.Equal(t, tt.expect.Path, got.Path)
			assert.Equal(t, tt.expect.Query, got.Query)
			if tt.expect.Body != "" {
				assert.JSONEq(t, tt.expect.Body, got.Body)
			}
		})
	}
}

func TestClient_SessionIDIsEscaped(t *testing.T) {
	client, reqs := newTestServer(t, http.StatusOK, summaryJSON)
	_, err := client.GetCart(context.Background(), "a/b c")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/cart/a%2Fb%20c", (*reqs)[0].Path)
}

// ============================================
// Response Tests
// ============================================

func TestClient_DecodesResponses(t *testing.T) {
	ctx := context.Background()

	client, _ := newTestServer(t, http.StatusOK, summaryJSON)
	summary, err := client.GetCart(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalItems)
	assert.Equal(t, "regular", summary.Cart.Items[0].Size())

	client, _ = newTestServer(t, http.StatusOK, orderJSON)
	o, err := client.GetOrder(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), o.CreatedAt.Time)

	client, _ = newTestServer(t, http.StatusOK, `{"message":"Cart cleared"}`)
	msg, err := client.ClearCart(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Cart cleared", msg)
}

func TestClient_HTTPErrors(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		expectedMessage string
	}{
		{"fastapi detail", http.StatusBadRequest, `{"detail":"Cart is empty"}`, "Cart is empty"},
		{"error field", http.StatusNotFound, `{"error":"not found"}`, "not found"},
		{"plain text", http.StatusInternalServerError, "boom\n", "boom"},
		{"validation detail list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"bad"}]}`, `{"detail":[{"msg":"bad"}]}`},
		{"empty body", http.StatusServiceUnavailable, "", "Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestServer(t, tt.status, tt.body)
			_, err := client.GetCart(context.Background(), "s-1")
			require.Error(t, err)

			status, ok := apperr.StatusOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, status)
			assert.True(t, apperr.IsKind(err, apperr.KindHTTPStatus))
			assert.Equal(t, tt.expectedMessage, apperr.Message(err, ""))
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, WithLogger(logging.Discard()))
	_, err := client.ListMenu(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNetwork))
	assert.Contains(t, err.Error(), "failed to connect to API at")
}

func TestClient_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient(srv.URL, WithLogger(logging.Discard()))
	_, err := client.ListMenu(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, apperr.IsKind(err, apperr.KindNetwork))
}

func TestClient_MalformedBody(t *testing.T) {
	client, _ := newTestServer(t, http.StatusOK, `{not json`)
	_, err := client.GetOrder(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(err))

	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestClient_RateLimit(t *testing.T) {
	client, reqs := newTestServer(t, http.StatusOK, `[]`)
	WithRateLimit(1000, 1)(client)

	for i := 0; i < 3; i++ {
		_, err := client.ListMenu(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, *reqs, 3)

	// A limiter that can never admit a request fails with the context error
	WithRateLimit(0.001, 1)(client)
	_, _ = client.ListMenu(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := client.ListMenu(ctx)
	assert.Error(t, err)
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	assert.Equal(t, "http://cafe:8000", NewClient("http://cafe:8000///").BaseURL())
}
