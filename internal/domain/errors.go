package domain

import (
	"errors"
	"fmt"
)

// Decode failure reasons. A *DecodeError unwraps to exactly one of these.
var (
	ErrNotStructured    = errors.New("not structured data")
	ErrUnknownType      = errors.New("unknown payload type")
	ErrMissingField     = errors.New("missing required field")
	ErrNumericCoercion  = errors.New("numeric-coercion failure")
	ErrShortObservation = errors.New("short observation")
)

// DecodeError describes why a datagram could not be turned into a Record.
type DecodeError struct {
	Reason error  // one of the Err* reasons above
	Type   string // discriminator, when one was readable
	Field  string // offending key, when applicable
	Err    error  // underlying parser error, if any
}

func (e *DecodeError) Error() string {
	msg := e.Reason.Error()
	if e.Type != "" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// DecodeReason returns a short, metric-friendly label for a decode error.
func DecodeReason(err error) string {
	switch {
	case errors.Is(err, ErrNotStructured):
		return "not_structured"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrNumericCoercion):
		return "numeric_coercion"
	case errors.Is(err, ErrShortObservation):
		return "short_observation"
	default:
		return "other"
	}
}
