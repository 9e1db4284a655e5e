package observability

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	assert.NotPanics(t, func() {
		defer RecoverPanic(logger, "export job")
		panic("nil map")
	})

	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), "export job")
	assert.Contains(t, buf.String(), "nil map")
}

func TestPanicError(t *testing.T) {
	assert.NoError(t, PanicError(nil))
	assert.EqualError(t, PanicError("boom"), "panic: boom")

	cause := errors.New("bad")
	assert.ErrorIs(t, PanicError(cause), cause)
}
