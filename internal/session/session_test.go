package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validID = "550e8400-e29b-41d4-a716-446655440000"

// ============================================
// Validation Tests
// ============================================

func TestValidateSessionData(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected bool
	}{
		{"valid", `{"sessionId":"` + validID + `","createdAt":"2025-03-01T10:00:00.000Z","lastActivity":"2025-03-01T11:00:00.000Z"}`, true},
		{"uppercase id", `{"sessionId":"550E8400-E29B-41D4-A716-446655440000","createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T10:00:00Z"}`, true},
		{"equal timestamps", `{"sessionId":"` + validID + `","createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T10:00:00Z"}`, true},
		{"extra fields ignored", `{"sessionId":"` + validID + `","createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T10:00:00Z","cart":1}`, true},
		{"missing sessionId", `{"createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T10:00:00Z"}`, false},
		{"missing createdAt", `{"sessionId":"` + validID + `","lastActivity":"2025-03-01T10:00:00Z"}`, false},
		{"missing lastActivity", `{"sessionId":"` + validID + `","createdAt":"2025-03-01T10:00:00Z"}`, false},
		{"empty sessionId", `{"sessionId":"","createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T10:00:00Z"}`, false},
		{"numeric sessionId", `{"sessionId":42,"createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T10:00:00Z"}`, false},
		{"version 1 id", `{"sessionId":"550e8400-e29b-11d4-a716-446655440000","createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T10:00:00Z"}`, false},
		{"bad variant", `{"sessionId":"550e8400-e29b-41d4-c716-446655440000","createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T10:00:00Z"}`, false},
		{"id without hyphens", `{"sessionId":"550e8400e29b41d4a716446655440000","createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T10:00:00Z"}`, false},
		{"non-ISO date", `{"sessionId":"` + validID + `","createdAt":"yesterday","lastActivity":"2025-03-01T10:00:00Z"}`, false},
		{"activity before creation", `{"sessionId":"` + validID + `","createdAt":"2025-03-01T10:00:00Z","lastActivity":"2025-03-01T09:59:59Z"}`, false},
		{"null", `null`, false},
		{"array", `[]`, false},
		{"not json", `cafe`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSessionData([]byte(tt.raw)))
		})
	}
}

func TestSession_JSONRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 123000000, time.UTC)
	s := Session{ID: validID, CreatedAt: created, LastActivity: created.Add(time.Minute)}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionId":"`+validID+`","createdAt":"2025-03-01T10:00:00.123Z","lastActivity":"2025-03-01T10:01:00.123Z"}`, string(data))

	var decoded Session
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s.ID, decoded.ID)
	assert.True(t, s.CreatedAt.Equal(decoded.CreatedAt))
	assert.True(t, s.LastActivity.Equal(decoded.LastActivity))
}

func TestSession_Validate(t *testing.T) {
	now := time.Now()
	assert.NoError(t, Session{ID: validID, CreatedAt: now, LastActivity: now}.Validate())
	assert.Error(t, Session{ID: "nope", CreatedAt: now, LastActivity: now}.Validate())
	assert.Error(t, Session{ID: validID, CreatedAt: now, LastActivity: now.Add(-time.Hour)}.Validate())
}

func TestMustRegister_PanicsOnBadTag(t *testing.T) {
	assert.Panics(t, func() {
		mustRegister("", func(validator.FieldLevel) bool { return true })
	})
}

// ============================================
// ID Generation Tests
// ============================================

func TestGenerateSessionID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateSessionID()
		assert.Regexp(t, sessionIDPattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestPseudoRandomID(t *testing.T) {
	for i := 0; i < 500; i++ {
		id := pseudoRandomID()
		require.Regexp(t, sessionIDPattern, id)
		assert.Equal(t, byte('4'), id[14])
		assert.Contains(t, "89ab", string(id[19]))
	}
}
