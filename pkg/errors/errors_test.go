package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flaboy/aira-payments/pkg/errors"
)

// TestKindOf verifies kinds survive fmt.Errorf wrapping, so callers can
// always switch on the kind instead of matching message text.
func TestKindOf(t *testing.T) {
	err := errors.NotFound("payments.GetCustomer", "customer not found")
	wrapped := fmt.Errorf("handling request: %w", err)

	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(wrapped))
	assert.True(t, errors.IsNotFound(wrapped))
	assert.False(t, errors.IsGateway(wrapped))

	assert.Equal(t, errors.Kind(""), errors.KindOf(fmt.Errorf("plain error")))
	assert.Equal(t, errors.Kind(""), errors.KindOf(nil))
}

func TestErrorMessage(t *testing.T) {
	err := errors.Validation("payments.CreateCheckout", "quantity must be greater than zero")
	assert.Equal(t, "payments.CreateCheckout: quantity must be greater than zero", err.Error())

	cause := fmt.Errorf("connection refused")
	gerr := errors.Gateway("stripe.CreateCustomer", "gateway operation failed: connection refused", cause)
	assert.ErrorIs(t, gerr, cause)
}

// TestRetryable verifies only gateway and transport failures are considered
// worth redelivering.
func TestRetryable(t *testing.T) {
	assert.True(t, errors.Retryable(errors.Gateway("op", "boom", nil)))
	assert.True(t, errors.Retryable(errors.Transport("op", "broker down", nil)))
	assert.False(t, errors.Retryable(errors.Validation("op", "bad input")))
	assert.False(t, errors.Retryable(errors.NotFound("op", "missing")))
	assert.False(t, errors.Retryable(fmt.Errorf("untyped")))
	assert.False(t, errors.Retryable(nil))
}
