package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can decide on retry and recovery
// without probing ad hoc fields.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNetwork means no response reached the client.
	KindNetwork
	// KindHTTPStatus means the backend answered with a non-2xx status.
	KindHTTPStatus
	// KindValidation means the request was rejected locally before any network call.
	KindValidation
	// KindSession means the client identity could not be established or recovered.
	KindSession
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http_status"
	case KindValidation:
		return "validation"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Error is the structured error shared by the client packages.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "cart.addItem"
	Status  int    // HTTP status for KindHTTPStatus, 0 otherwise
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String() + " error"
	}
	switch {
	case e.Kind == KindHTTPStatus && e.Op != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, msg)
	case e.Kind == KindHTTPStatus:
		return fmt.Sprintf("status %d: %s", e.Status, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Network wraps a transport failure.
func Network(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// HTTPStatus builds an error for a non-2xx response. An empty body falls back
// to the status text.
func HTTPStatus(op string, status int, body string) *Error {
	if body == "" {
		body = http.StatusText(status)
	}
	if body == "" {
		body = "API request failed"
	}
	return &Error{Kind: KindHTTPStatus, Op: op, Status: status, Message: body}
}

// Validation wraps a local validation failure. err is usually a domain
// sentinel so errors.Is keeps working.
func Validation(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// Session wraps a failure to establish a client identity.
func Session(op string, err error) *Error {
	return &Error{Kind: KindSession, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the HTTP status carried by err, if any.
func StatusOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindHTTPStatus {
		return e.Status, true
	}
	return 0, false
}

// HasStatus reports whether err carries one of the given HTTP statuses.
func HasStatus(err error, statuses ...int) bool {
	status, ok := StatusOf(err)
	if !ok {
		return false
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Message returns the text shown to a user for err, or fallback when err
// carries nothing readable.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
