package errs

import (
	"errors"
	"fmt"
)

// Failure kinds. Compare with errors.Is; every *Error carries one of these as its Kind.
var (
	ErrConflict            = errors.New("conflict")
	ErrReferentialConflict = errors.New("referential conflict")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrAuthDenied          = errors.New("auth denied")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInvalidArgument     = errors.New("invalid argument")
)

// Error is a failure tagged with the operation that produced it.
type Error struct {
	Op   string // e.g. "store.AddCategory"
	Kind error  // one of the sentinels above
	ID   string // optional entity id
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += fmt.Sprintf(" [%s]", e.ID)
	}
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil && e.Err != e.Kind {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrNotFound) match on Kind without the cause having to be the sentinel.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// E builds an *Error. err may be nil.
func E(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Ef builds an *Error with a formatted cause.
func Ef(op string, kind error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WithID returns e tagged with an entity id.
func (e *Error) WithID(id any) *Error {
	e.ID = fmt.Sprint(id)
	return e
}

var kinds = []error{
	ErrConflict,
	ErrReferentialConflict,
	ErrNotFound,
	ErrInsufficientStock,
	ErrAuthDenied,
	ErrStorageUnavailable,
	ErrInvalidArgument,
}

// KindOf reports the failure kind of err, or nil when err is nil or untyped.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
