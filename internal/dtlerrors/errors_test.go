package dtlerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwhmather/dtl/pos"
)

func TestParseErrorMessage(t *testing.T) {
	err := &ParseError{Pos: pos.Position{Line: 3, Column: 7}, Message: "unexpected token"}
	assert.Equal(t, "parse error at 3:7: unexpected token", err.Error())
}

func TestRuntimeErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &RuntimeError{Message: "write output", Cause: cause}
	assert.Contains(t, err.Error(), "disk full")
	assert.ErrorIs(t, err, cause)
}

func TestRuntimeErrorWithoutSpanOrCause(t *testing.T) {
	err := &RuntimeError{Message: "missing import"}
	assert.Equal(t, "runtime error: missing import", err.Error())
}

func TestPanicAndRecoverProducesInternalError(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		Panic("shape mismatch: %s", "Where")
		return nil
	}

	err := run()
	require.Error(t, err)
	var ierr *InternalError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "internal error: shape mismatch: Where", ierr.Error())
}

func TestRecoverRepanicsOnForeignPanic(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		panic("not an InternalError")
	}

	assert.PanicsWithValue(t, "not an InternalError", func() {
		_ = run()
	})
}
