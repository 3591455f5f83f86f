package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	cause := errors.New("disk full")
	err := NewError(ErrInternalError, "persist instance failed").
		WithCause(cause).
		WithHTTPStatus(500).
		WithRetryable(true)

	assert.Equal(t, ErrInternalError, err.Code)
	assert.Equal(t, 500, err.HTTPStatus)
	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Contains(t, err.Error(), "disk full")
}

func TestAsErrorUnwrapsChains(t *testing.T) {
	inner := NewError(ErrApprovalNotFound, "no pending approval")
	wrapped := fmt.Errorf("submit decision: %w", inner)

	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrApprovalNotFound, got.Code)
	assert.True(t, IsErrorCode(wrapped, ErrApprovalNotFound))
	assert.False(t, IsErrorCode(wrapped, ErrNotFound))
}

func TestGetErrorCodePlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}
