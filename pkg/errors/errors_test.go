package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := Newf(CodeOutOfStock, "%s is out of stock", "1oz Gold Eagle")
	assert.Equal(t, CodeOutOfStock, CodeOf(err))
	assert.Contains(t, err.Error(), "1oz Gold Eagle")

	wrapped := fmt.Errorf("creating order: %w", err)
	assert.Equal(t, CodeOutOfStock, CodeOf(wrapped), "code survives wrapping")

	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(CodeTransientFailure, "catalog lookup failed", cause)

	assert.Equal(t, CodeTransientFailure, CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "catalog lookup failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsCode(t *testing.T) {
	err := New(CodeAlreadyTerminal, "order is cancelled")
	assert.True(t, IsCode(err, CodeAlreadyTerminal))
	assert.False(t, IsCode(err, CodeWorkflowInvalidState))
	assert.False(t, IsCode(nil, CodeAlreadyTerminal))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(CodeTransientFailure, "store timeout")))
	assert.True(t, Retryable(New(CodeConcurrentModification, "status moved")))
	assert.False(t, Retryable(New(CodeOutOfStock, "sold out")))
	assert.False(t, Retryable(nil))
}
