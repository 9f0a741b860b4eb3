package sdkErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategories(t *testing.T) {
	tests := []struct {
		err      *SDKError
		category Category
	}{
		{NewConcurrentAuthorisation(), CategoryConflict},
		{NewConcurrentDeployment(), CategoryConflict},
		{NewInvalidAddress("0x12"), CategoryValidationFailed},
		{NewUnsupportedBytecode(), CategoryValidationFailed},
		{NewInvalidEvent("Foo"), CategoryValidationFailed},
		{NewMissingConfiguration(), CategoryNotFound},
		{NewTransactionHashNotFound(), CategoryNotFound},
		{NewMissingMessageHash(), CategoryNotFound},
		{NewTimeoutError(), CategoryTimeout},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category())
			assert.True(t, IsCategory(tt.err, tt.category))
			assert.Equal(t, tt.category == CategoryTimeout, IsRetryable(tt.err))
		})
	}
}

func TestErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("failed to add key: %w", NewConcurrentAuthorisation())

	assert.True(t, errors.Is(wrapped, ErrConcurrentAuthorisation))
	assert.False(t, errors.Is(wrapped, ErrConcurrentDeployment))
	assert.True(t, IsType(wrapped, ConcurrentAuthorisation))

	et, ok := TypeOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ConcurrentAuthorisation, et)

	_, ok = TypeOf(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Address 0xabc is not valid.", NewInvalidAddress("0xabc").Error())
	assert.Equal(t, "Unknown event type: Transfer", NewInvalidEvent("Transfer").Error())
	assert.Equal(t, "Timeout exceeded", NewTimeoutError().Error())
}
