package cart

const (
	EventCartUpdated = "CartUpdated"
	EventCartCleared = "CartCleared"
)

// CartUpdated carries the snapshot that replaced local cart state.
type CartUpdated struct {
	SessionID   string  `json:"session_id"`
	Reason      string  `json:"reason"`
	TotalItems  int     `json:"total_items"`
	TotalAmount float64 `json:"total_amount"`
	Summary     Summary `json:"summary"`
}

type CartCleared struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}
