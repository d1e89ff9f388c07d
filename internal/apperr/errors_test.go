package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{"http with op", HTTPStatus("cart.get", 404, "Cart not found"), "cart.get: status 404: Cart not found"},
		{"http empty body", HTTPStatus("", 503, ""), "status 503: Service Unavailable"},
		{"network", Network("menu.list", errors.New("connection refused")), "menu.list: connection refused"},
		{"validation", Validation("", errors.New("quantity must be positive")), "quantity must be positive"},
		{"bare kind", &Error{Kind: KindSession}, "session error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestStatusOf(t *testing.T) {
	wrapped := fmt.Errorf("add item: %w", HTTPStatus("cart.addItem", http.StatusNotFound, "missing"))

	status, ok := StatusOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, status)

	_, ok = StatusOf(Network("op", errors.New("boom")))
	assert.False(t, ok)

	_, ok = StatusOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestHasStatus(t *testing.T) {
	err := HTTPStatus("op", 401, "")
	assert.True(t, HasStatus(err, 401, 404))
	assert.False(t, HasStatus(err, 500))
	assert.False(t, HasStatus(nil, 401))
}

func TestKindOf(t *testing.T) {
	sentinel := errors.New("quantity must be positive")
	err := Validation("cart.add", sentinel)

	assert.Equal(t, KindValidation, KindOf(err))
	assert.True(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(nil, KindValidation))
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, KindUnknown, KindOf(errors.New("other")))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Cart not found", Message(HTTPStatus("op", 404, "Cart not found"), "fallback"))
	assert.Equal(t, "boom", Message(Network("op", errors.New("boom")), "fallback"))
	assert.Equal(t, "fallback", Message(nil, "fallback"))
	assert.Equal(t, "plain", Message(errors.New("plain"), "fallback"))
}
