package tab

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable class of a failure.
type Kind string

const (
	KindInvalidRequest Kind = "invalid_request"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindInternal       Kind = "internal"
)

// Sentinel errors for common failure scenarios.
var (
	// Kind errors; every *Error matches the sentinel of its kind.
	ErrInvalidRequest = errors.New("tab: invalid request")
	ErrNotFound       = errors.New("tab: not found")
	ErrConflict       = errors.New("tab: conflict")

	// Lookup errors
	ErrOrderNotFound          = errors.New("tab: order not found")
	ErrNoteNotFound           = errors.New("tab: note not found")
	ErrTableNotFound          = errors.New("tab: table has no active orders")
	ErrBillNotFound           = errors.New("tab: bill not found")
	ErrServiceRequestNotFound = errors.New("tab: service request not found")

	// Lifecycle errors
	ErrNotStarted     = errors.New("tab: ledger not started")
	ErrAlreadyStarted = errors.New("tab: ledger already started")
)

// Error is the structured failure returned by every ledger operation.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("tab: %s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("tab: %s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidRequest:
		return e.Kind == KindInvalidRequest
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

func invalid(op string, err error) *Error {
	return &Error{Kind: KindInvalidRequest, Op: op, Message: err.Error(), Err: err}
}

func invalidf(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Op: op, Message: fmt.Sprintf(format, args...)}
}

func notFound(op string, sentinel error, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "tab: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("tab: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrNoteNotFound) ||
		errors.Is(err, ErrTableNotFound) ||
		errors.Is(err, ErrBillNotFound) ||
		errors.Is(err, ErrServiceRequestNotFound)
}

// IsInvalid returns true if the error rejects a malformed request.
func IsInvalid(err error) bool {
	var v ValidationError
	return errors.Is(err, ErrInvalidRequest) || errors.As(err, &v)
}

// KindOf returns the Kind carried by err, KindInternal for foreign errors
// and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case IsNotFound(err):
		return KindNotFound
	case IsInvalid(err):
		return KindInvalidRequest
	case errors.Is(err, ErrConflict):
		return KindConflict
	}
	return KindInternal
}
