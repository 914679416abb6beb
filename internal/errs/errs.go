// Package errs defines the supervisor core's error taxonomy: a small set
// of typed kinds, wrapping an underlying cause, so callers can branch on
// "what kind of failure" without string matching.
package errs

import (
	"errors"
	"fmt"

	"github.com/xcorat/araliya/internal/busproto"
)

// Kind classifies a failure by its origin, not by concrete Go type.
type Kind string

const (
	KindConfig          Kind = "config"
	KindIdentity        Kind = "identity"
	KindLogger          Kind = "logger"
	KindBusCall         Kind = "bus-call"
	KindMethodNotFound  Kind = "method-not-found"
	KindBadRequest      Kind = "bad-request"
	KindMemory          Kind = "memory"
	KindComponent       Kind = "component"
	KindExternal        Kind = "external"
)

// Error is a typed, wrapped failure carrying a Kind alongside its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New builds an Error for op failing with cause err, classified as kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ToBusError maps a typed Error to the bus wire error it should surface as
// a reply. Kinds with no natural bus code map to an application error in
// the reserved -32000..-32099 range.
func ToBusError(err error) *busproto.Error {
	var e *Error
	if !errors.As(err, &e) {
		return busproto.NewAppError(-32000, err.Error())
	}
	switch e.Kind {
	case KindMethodNotFound:
		return busproto.NewMethodNotFound(e.Error())
	case KindBadRequest:
		return busproto.NewBadRequest(e.Error())
	default:
		return busproto.NewAppError(-32000, e.Error())
	}
}
