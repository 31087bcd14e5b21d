package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/service"
)

func fastOpts(maxAttempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return nil
	}, fastOpts(3))

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RecoversAfterTransientFailure(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return ErrClassifierUnavailable
		}
		return nil
	}, fastOpts(3))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return ErrClassifierTimeout
	}, fastOpts(2))

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return ErrUnsuitableDocument
	}, fastOpts(3))

	assert.ErrorIs(t, err, ErrUnsuitableDocument)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, func() error {
		calls++
		cancel()
		return ErrClassifierUnavailable
	}, service.RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "unsuitable document", err: ErrUnsuitableDocument, want: false},
		{name: "classifier rejection", err: ErrClassifierRejected, want: false},
		{name: "validation error", err: NewValidationError("field", "bad"), want: false},
		{name: "classifier timeout", err: ErrClassifierTimeout, want: true},
		{name: "rate limit", err: ErrRateLimit, want: true},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "external service", err: NewExternalServiceError("store", errors.New("disk full")), want: true},
		{name: "wrapped terminal beats wrapper", err: &RetryableError{Err: ErrUnsuitableDocument, Retryable: true}, want: false},
		{name: "explicit retryable", err: &RetryableError{Err: errors.New("flaky"), Retryable: true}, want: true},
		{name: "explicit non-retryable", err: &RetryableError{Err: errors.New("broken"), Retryable: false}, want: false},
		{name: "plain error", err: errors.New("anything"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Try again later.", UserMessage(NewUserError("Try again later.", ErrClassifierUnavailable)))
	assert.Contains(t, UserMessage(ErrUnsuitableDocument), "does not look like a financial statement")
	assert.Contains(t, UserMessage(ErrNotFound), "not found or expired")
	assert.Equal(t, "something odd", UserMessage(errors.New("something odd")))
}
