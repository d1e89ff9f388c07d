package session

const (
	AggregateType         = "Session"
	EventSessionRecovered = "SessionRecovered"
)

// SessionRecovered is emitted when a controller switches to a different
// session, after expiry or a recovery detour.
type SessionRecovered struct {
	PreviousID string `json:"previous_id,omitempty"`
	SessionID  string `json:"session_id"`
	Reason     string `json:"reason"`
}
