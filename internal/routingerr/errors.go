// Package routingerr defines the typed error kinds used across the router
// so callers can branch on failure class with errors.Is instead of string
// matching, the way the teacher's sink/provider boundaries expect explicit
// success/failure rather than exceptions.
package routingerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure per the error handling design in §7.
type Kind int

const (
	// KindInvalidArgument means inputs violate a documented constraint.
	// Not retried; surfaced to the caller.
	KindInvalidArgument Kind = iota
	// KindProviderFailure means a Context Provider or external adapter
	// failed; absorbed locally, the provider returns a zero context.
	KindProviderFailure
	// KindSinkFailure means a registered sink raised; absorbed, the
	// router continues with the remaining sinks.
	KindSinkFailure
	// KindTransportFailure means a broker adapter's I/O failed; surfaced
	// to the host driving PollOnce.
	KindTransportFailure
	// KindConfigError means a policy construction or update carried
	// invalid weights or thresholds; rejected at the boundary.
	KindConfigError
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindProviderFailure:
		return "ProviderFailure"
	case KindSinkFailure:
		return "SinkFailure"
	case KindTransportFailure:
		return "TransportFailure"
	case KindConfigError:
		return "ConfigError"
	default:
		return "Unknown"
	}
}

// Error is the structured error type returned across router boundaries.
// It carries a short human Message separate from the wrapped Cause so
// transport layers (the policy endpoint) can surface kind + message
// without leaking internals.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same Kind, so
// errors.Is(err, routingerr.Sentinel(routingerr.KindInvalidArgument)) (or any
// other *Error of that kind) matches regardless of Message or Cause.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == te.Kind
}

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Sentinel returns a bare *Error usable as the target of errors.Is for a
// given Kind, e.g. errors.Is(err, routingerr.Sentinel(routingerr.KindInvalidArgument)).
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, otherwise it reports an unrecognized kind string via Kind(-1).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Kind(-1)
}
