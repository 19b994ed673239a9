package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsAfterBusyStore(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		if attempts < 3 {
			return New(ErrCodeStoreBusy, "database is locked", nil)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return New(ErrCodeStoreBusy, "database is locked", nil)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 3, attempts) // Initial + 2 retries
}

func TestRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	attempts := 0
	permanent := New(ErrCodeEntityNotFound, "missing", nil)

	err := Retry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return permanent
	})

	assert.Same(t, permanent, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_DoesNotRetryPlainErrors(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return errors.New("syntax error")
	})

	assert.EqualError(t, err, "syntax error")
	assert.Equal(t, 1, attempts)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Retry(ctx, fastRetryConfig(), func() error {
		attempts++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	attempts := 0
	got, err := RetryWithResult(context.Background(), fastRetryConfig(), func() (string, error) {
		attempts++
		if attempts == 1 {
			return "", New(ErrCodeStoreBusy, "busy", nil)
		}
		return "collection", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "collection", got)
}

func TestDefaultRetryConfig_HasSensibleDefaults(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Greater(t, cfg.MaxRetries, 0)
	assert.Greater(t, cfg.InitialDelay, time.Duration(0))
	assert.GreaterOrEqual(t, cfg.MaxDelay, cfg.InitialDelay)
	assert.Greater(t, cfg.Multiplier, 1.0)
}
