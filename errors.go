package cursor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Every error produced by this module for one of these
// conditions matches its kind with errors.Is.
var (
	// ErrIO reports a failure to open or read a backing resource.
	ErrIO = errors.New("i/o failure")
	// ErrInvalidProperty reports access to an unknown named property.
	ErrInvalidProperty = errors.New("invalid property")
	// ErrUnsupportedOperation reports a mutation of a read-only cursor.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrMalformedInput reports a row or record of an unexpected shape.
	ErrMalformedInput = errors.New("malformed input")
)

// Error is a classified failure. It matches its kind with errors.Is and
// unwraps to the underlying cause, if any.
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Kind returns one of the Err* sentinels.
func (e *Error) Kind() error {
	return e.kind
}

func (e *Error) Is(target error) bool {
	return target == e.kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

// IOError classifies err as an i/o failure.
func IOError(err error, format string, args ...any) error {
	return &Error{kind: ErrIO, msg: fmt.Sprintf(format, args...), cause: errors.WithStack(err)}
}

// MalformedInput reports a shape violation.
func MalformedInput(format string, args ...any) error {
	return &Error{kind: ErrMalformedInput, msg: ErrMalformedInput.Error() + ": " + fmt.Sprintf(format, args...)}
}

// InvalidProperty reports that owner has no property called name.
func InvalidProperty(owner, name string) error {
	return &Error{kind: ErrInvalidProperty, msg: fmt.Sprintf("%q is not a property of %s", name, owner)}
}

// UnsupportedOperation reports that owner rejects op.
func UnsupportedOperation(owner, op string) error {
	return &Error{kind: ErrUnsupportedOperation, msg: fmt.Sprintf("%s is read-only: %s is not supported", owner, op)}
}
