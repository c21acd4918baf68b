package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	assert.Equal(t, "[not_found] card missing", New(ErrKindNotFound, "card missing").Error())
	assert.Equal(t, "[connection_failed] ping failed: dial tcp: refused",
		Wrap(ErrKindConnectionFailed, "ping failed", cause).Error())
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrKindQueryFailed, "query failed", cause)

	assert.ErrorIs(t, err, cause)
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		kind ErrKind
		pred func(error) bool
	}{
		{"not found", ErrKindNotFound, IsNotFound},
		{"timeout", ErrKindTimeout, IsTimeout},
		{"connection failed", ErrKindConnectionFailed, IsConnectionFailed},
		{"query failed", ErrKindQueryFailed, IsQueryFailed},
		{"invalid input", ErrKindInvalidInput, IsInvalidInput},
		{"permission denied", ErrKindPermissionDenied, IsPermissionDenied},
		{"unavailable", ErrKindUnavailable, IsUnavailable},
		{"conflict", ErrKindConflict, IsConflict},
		{"unauthenticated", ErrKindUnauthenticated, IsUnauthenticated},
		{"config", ErrKindConfig, IsConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.kind, "x")
			wrapped := fmt.Errorf("outer: %w", err)

			assert.True(t, tt.pred(err))
			assert.True(t, tt.pred(wrapped), "predicate must see through wrapping")
			assert.False(t, tt.pred(errors.New("plain")))
		})
	}
}

func TestUnavailableIsDistinctFromDataErrors(t *testing.T) {
	err := New(ErrKindUnavailable, "pool exhausted")

	assert.False(t, IsNotFound(err))
	assert.False(t, IsInvalidInput(err))
	assert.False(t, IsQueryFailed(err))
	assert.Equal(t, "unavailable", KindOf(err).String())
}

func TestKindOf_Unknown(t *testing.T) {
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("x")))
	assert.Equal(t, "unknown", ErrKindUnknown.String())
}
