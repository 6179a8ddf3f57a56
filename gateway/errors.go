package gateway

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/go-session-client/apimodel"
)

// Kind classifies why a call failed.
type Kind int

const (
	KindLogical      Kind = iota + 1 // Envelope code was not the success sentinel
	KindUnauthorized                 // 401, or 403 under the teardown policy; the session is gone
	KindTransport                    // Any other non-2xx status, or an unreadable 2xx body
	KindNetwork                      // No response was received
)

var (
	ErrLogicalFailure   = errors.New("logical failure")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTransportFailure = errors.New("transport failure")
	ErrNetworkFailure   = errors.New("network failure")
)

func (k Kind) String() string {
	switch k {
	case KindLogical:
		return "logical_failure"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransport:
		return "transport_failure"
	case KindNetwork:
		return "network_failure"
	}
	return "unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case KindLogical:
		return ErrLogicalFailure
	case KindUnauthorized:
		return ErrUnauthorized
	case KindTransport:
		return ErrTransportFailure
	case KindNetwork:
		return ErrNetworkFailure
	}
	return nil
}

// Error is returned by every failed Send. errors.Is(err, ErrUnauthorized) and
// friends match on Kind.
type Error struct {
	Kind     Kind
	Status   int                // HTTP status, 0 when no response was received
	Code     int                // Envelope code of a logical failure
	Message  string             // The message shown to the user
	Envelope *apimodel.Envelope // The rejected envelope of a logical failure
	Err      error              // Underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Kind == KindLogical {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind of a gateway error, or 0 for any other error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}
