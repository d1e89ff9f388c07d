package order

import (
	"encoding/json"
	"testing"

	"github.com/example/cafe-client/internal/domain/cart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// State Machine Tests
// ============================================

func TestOrder_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     Status
		to       Status
		expected bool
	}{
		{"pending to completed", StatusPending, StatusCompleted, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to pending", StatusPending, StatusPending, false},
		{"completed to cancelled", StatusCompleted, StatusCancelled, false},
		{"completed to pending", StatusCompleted, StatusPending, false},
		{"cancelled to completed", StatusCancelled, StatusCompleted, false},
		{"cancelled to pending", StatusCancelled, StatusPending, false},
		{"unknown status", Status("paid"), StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.from}
			assert.Equal(t, tt.expected, o.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_Transition_Errors(t *testing.T) {
	completed := &Order{Status: StatusCompleted}
	assert.ErrorIs(t, completed.Transition(StatusCancelled), ErrOrderCompleted)

	cancelled := &Order{Status: StatusCancelled}
	assert.ErrorIs(t, cancelled.Transition(StatusCompleted), ErrOrderCancelled)

	pending := &Order{Status: StatusPending}
	assert.ErrorIs(t, pending.Transition(StatusPending), ErrInvalidStatus)
	assert.NoError(t, pending.Transition(StatusCompleted))
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, Status("unknown").IsTerminal())
}

func TestStatus_Label(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusPending, "Preparing"},
		{StatusCompleted, "Ready for Collection"},
		{StatusCancelled, "Cancelled"},
		{Status("refunded"), "Refunded"},
		{Status(""), ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.Label())
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Completed ")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	_, err = ParseStatus("shipped")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

// ============================================
// Order ID Input Tests
// ============================================

func TestParseID(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    int64
		expectedErr error
	}{
		{"plain", "42", 42, nil},
		{"surrounding spaces", "  7 ", 7, nil},
		{"empty", "", 0, ErrMissingOrderID},
		{"blank", "   ", 0, ErrMissingOrderID},
		{"zero", "0", 0, ErrInvalidOrderID},
		{"negative", "-3", 0, ErrInvalidOrderID},
		{"not a number", "abc", 0, ErrInvalidOrderID},
		{"decimal", "1.5", 0, ErrInvalidOrderID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseID(tt.input)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestOrder_TotalItems(t *testing.T) {
	o := &Order{Cart: cart.Cart{Items: []cart.Item{{Quantity: 3}, {Quantity: 8}}}}
	assert.Equal(t, 11, o.TotalItems())
}

func TestConfirmation_DecodesBackendPayload(t *testing.T) {
	payload := `{
		"order": {"id": 5, "cart_id": 7, "status": "pending", "total_amount": 9.5,
		          "created_at": "2025-03-01T10:00:00", "cart": {"id": 7, "session_id": "s", "cart_items": []}},
		"message": "Order placed successfully"
	}`

	var c Confirmation
	require.NoError(t, json.Unmarshal([]byte(payload), &c))
	assert.Equal(t, int64(5), c.Order.ID)
	assert.Equal(t, StatusPending, c.Order.Status)
	assert.Equal(t, "Order placed successfully", c.Message)
}
