// Package session manages the anonymous client identity that keys the
// server-side cart. The record lives in the key/value store under StorageKey
// and every read refreshes its activity stamp.
package session

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"github.com/example/cafe-client/internal/domain/timestamp"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	StorageKey = "cafe_session"

	// DefaultMaxInactive is the inactivity window after which a stored
	// session is discarded.
	DefaultMaxInactive = 24 * time.Hour
)

var sessionIDPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// Session identifies one client.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time
}

// record is the stored form. Field names match what the web frontend writes,
// so both can share a storage backend.
type record struct {
	SessionID    string `json:"sessionId" validate:"required,sessionid"`
	CreatedAt    string `json:"createdAt" validate:"required,isotime"`
	LastActivity string `json:"lastActivity" validate:"required,isotime"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	mustRegister("sessionid", func(fl validator.FieldLevel) bool {
		return sessionIDPattern.MatchString(fl.Field().String())
	})
	mustRegister("isotime", func(fl validator.FieldLevel) bool {
		_, err := timestamp.Parse(fl.Field().String())
		return err == nil
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("session: register %q validation: %v", tag, err))
	}
}

func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		SessionID:    s.ID,
		CreatedAt:    timestamp.Format(s.CreatedAt),
		LastActivity: timestamp.Format(s.LastActivity),
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	parsed, err := decode(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Validate reports whether s would pass ValidateSessionData once stored.
func (s Session) Validate() error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = decode(data)
	return err
}

// ValidateSessionData checks a stored record: all three fields present and
// strings, a v4 session id, parseable timestamps, and lastActivity not
// before createdAt.
func ValidateSessionData(raw []byte) bool {
	_, err := decode(raw)
	return err == nil
}

func decode(raw []byte) (Session, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Session{}, fmt.Errorf("malformed session record: %w", err)
	}
	if err := validate.Struct(r); err != nil {
		return Session{}, fmt.Errorf("invalid session record: %w", err)
	}

	created, _ := timestamp.Parse(r.CreatedAt)
	last, _ := timestamp.Parse(r.LastActivity)
	if last.Before(created) {
		return Session{}, fmt.Errorf("invalid session record: lastActivity %s precedes createdAt %s", r.LastActivity, r.CreatedAt)
	}

	return Session{ID: r.SessionID, CreatedAt: created, LastActivity: last}, nil
}

// GenerateSessionID returns a random v4 UUID. If the secure source fails it
// falls back to a pseudo-random id with the same shape.
func GenerateSessionID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return pseudoRandomID()
	}
	return id.String()
}

func pseudoRandomID() string {
	const hex = "0123456789abcdef"
	const template = "xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx"

	b := []byte(template)
	for i, c := range b {
		switch c {
		case 'x':
			b[i] = hex[rand.IntN(16)]
		case 'y':
			b[i] = hex[rand.IntN(4)|0x8]
		}
	}
	return string(b)
}
