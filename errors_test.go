package cursor

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	_, cause := os.Open("/nonexistent/file")
	err := IOError(cause, "unable to open %s", "file")
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrMalformedInput)
	assert.Contains(t, err.Error(), "unable to open file")

	assert.ErrorIs(t, MalformedInput("row %d", 3), ErrMalformedInput)
	assert.ErrorIs(t, InvalidProperty("ArraySource", "x"), ErrInvalidProperty)
	assert.ErrorIs(t, UnsupportedOperation("ArraySource", "set"), ErrUnsupportedOperation)

	wrapped := errors.Wrap(InvalidProperty("A", "b"), "context")
	var ce *Error
	assert.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, ErrInvalidProperty, ce.Kind())
}
