package errors

import (
	"errors"
	"testing"

	"github.com/jeroenrinzema/psql-dispatch/codes"
	"github.com/stretchr/testify/assert"
)

func TestCodeAnnotation(t *testing.T) {
	t.Parallel()

	err := WithCode(errors.New("unexpected message"), codes.ProtocolViolation)
	assert.Equal(t, codes.ProtocolViolation, GetCode(err))
}

func TestCodeThroughWrappedChain(t *testing.T) {
	t.Parallel()

	inner := WithCode(errors.New("connection reset"), codes.ConnectionFailure)
	outer := WithSeverity(inner, LevelFatal)

	assert.Equal(t, codes.ConnectionFailure, GetCode(outer))
	assert.Equal(t, LevelFatal, GetSeverity(outer))
}

func TestUncategorizedCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, codes.Uncategorized, GetCode(errors.New("plain")))
}

func TestFlattenBackendError(t *testing.T) {
	t.Parallel()

	desc := &Error{
		Severity: LevelError,
		Code:     codes.Code("42601"),
		Message:  "syntax error",
	}

	flat := Flatten(desc)
	assert.Equal(t, desc.Message, flat.Message)
	assert.Equal(t, desc.Code, flat.Code)
}

func TestFlattenDecoratedError(t *testing.T) {
	t.Parallel()

	err := WithSeverity(WithCode(errors.New("oops"), codes.Internal), LevelFatal)
	flat := Flatten(err)

	assert.Equal(t, codes.Internal, flat.Code)
	assert.Equal(t, LevelFatal, flat.Severity)
	assert.Equal(t, "oops", flat.Message)
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	desc := &Error{Severity: LevelError, Code: codes.Code("28P01"), Message: "password authentication failed"}
	assert.Equal(t, "ERROR: password authentication failed (SQLSTATE 28P01)", desc.Error())
}
