package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/example/cafe-client/internal/infrastructure/store"
	"github.com/example/cafe-client/internal/metrics"
)

// Manager reads and writes the session record. None of its methods return
// errors: storage failures are logged and degrade to a fresh session that
// may only live in memory for that call.
type Manager struct {
	store       store.KV
	logger      *slog.Logger
	now         func() time.Time
	maxInactive time.Duration
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMaxInactive sets the window EnsureValidSession uses.
func WithMaxInactive(d time.Duration) Option {
	return func(m *Manager) { m.maxInactive = d }
}

func NewManager(kv store.KV, opts ...Option) *Manager {
	m := &Manager{
		store:       kv,
		logger:      slog.Default(),
		now:         time.Now,
		maxInactive: DefaultMaxInactive,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "session")
	return m
}

// stamp matches the stored precision so a session survives a round trip
// unchanged.
func (m *Manager) stamp() time.Time {
	return m.now().UTC().Truncate(time.Millisecond)
}

// CreateNewSession returns an unsaved session stamped now.
func (m *Manager) CreateNewSession() Session {
	now := m.stamp()
	return Session{ID: GenerateSessionID(), CreatedAt: now, LastActivity: now}
}

// StoreSession persists s and reports success.
func (m *Manager) StoreSession(ctx context.Context, s Session) bool {
	data, err := json.Marshal(s)
	if err != nil {
		m.logger.Error("failed to encode session", "error", err)
		return false
	}
	if err := m.store.Set(ctx, StorageKey, string(data)); err != nil {
		m.logger.Error("failed to store session data", "error", err)
		return false
	}
	return true
}

// GetStoredSession returns the stored session, or nil when it is missing,
// unreadable or invalid.
func (m *Manager) GetStoredSession(ctx context.Context) *Session {
	raw, ok, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		m.logger.Error("failed to retrieve session data", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}
	s, err := decode([]byte(raw))
	if err != nil {
		m.logger.Warn("discarding stored session", "error", err)
		return nil
	}
	return &s
}

// UpdateSessionActivity returns a copy of s with LastActivity set to now
// and persists it. LastActivity never moves before CreatedAt.
func (m *Manager) UpdateSessionActivity(ctx context.Context, s Session) Session {
	now := m.stamp()
	if now.Before(s.CreatedAt) {
		now = s.CreatedAt
	}
	s.LastActivity = now
	m.StoreSession(ctx, s)
	return s
}

// IsSessionExpired is true when more than maxInactive has passed since the
// last activity. Exactly maxInactive is not expired.
func (m *Manager) IsSessionExpired(s Session, maxInactive time.Duration) bool {
	return m.now().Sub(s.LastActivity) > maxInactive
}

// GetOrCreateSession returns the stored session with refreshed activity, or
// creates and stores a new one.
func (m *Manager) GetOrCreateSession(ctx context.Context) Session {
	if existing := m.GetStoredSession(ctx); existing != nil {
		return m.UpdateSessionActivity(ctx, *existing)
	}
	return m.createAndStore(ctx, "missing")
}

// CurrentSessionID is the id of GetOrCreateSession.
func (m *Manager) CurrentSessionID(ctx context.Context) string {
	return m.GetOrCreateSession(ctx).ID
}

// RecoverSession replaces an expired stored session, refreshes a live one,
// and creates one when none is stored.
func (m *Manager) RecoverSession(ctx context.Context, maxInactive time.Duration) Session {
	existing := m.GetStoredSession(ctx)
	if existing == nil {
		return m.createAndStore(ctx, "missing")
	}

	if m.IsSessionExpired(*existing, maxInactive) {
		m.logger.Warn("session expired, creating new session",
			"session_id", existing.ID,
			"last_activity", existing.LastActivity,
		)
		m.ClearSession(ctx)
		return m.createAndStore(ctx, "expired")
	}

	return m.UpdateSessionActivity(ctx, *existing)
}

// EnsureValidSession is RecoverSession with the configured window.
func (m *Manager) EnsureValidSession(ctx context.Context) Session {
	return m.RecoverSession(ctx, m.maxInactive)
}

// ClearSession removes the stored record and reports success.
func (m *Manager) ClearSession(ctx context.Context) bool {
	if err := m.store.Delete(ctx, StorageKey); err != nil {
		m.logger.Error("failed to clear session data", "error", err)
		return false
	}
	return true
}

func (m *Manager) createAndStore(ctx context.Context, reason string) Session {
	s := m.CreateNewSession()
	if !m.StoreSession(ctx, s) {
		reason = "ephemeral"
	}
	metrics.SessionsCreated.WithLabelValues(reason).Inc()
	m.logger.Info("created session", "session_id", s.ID, "reason", reason)
	return s
}
