package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/retry"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg       string
		retryable bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"rpc error: code = ResourceExhausted desc = resource exhausted", true},
		{"rpc error: code = NotFound desc = job not found", false},
		{"rpc error: code = PermissionDenied", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableZeebeError(errors.New(tt.msg)))
		})
	}
}

func testClient() *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		Retry:             retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Factor: 2, MaxDelay: 5 * time.Millisecond},
	}}
}

func TestExecuteWithRetry_RecoversFromTransientFailure(t *testing.T) {
	c := testClient()
	calls := 0

	err := c.ExecuteWithRetry(context.Background(), "complete", func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("connection reset by peer")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetry_PermanentFailureStopsImmediately(t *testing.T) {
	c := testClient()
	calls := 0

	err := c.ExecuteWithRetry(context.Background(), "complete", func(context.Context) error {
		calls++
		return errors.New("job not found")
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, apperrors.ErrBrokerUnavailable)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, "complete", stdErr.Metadata["operation"])
}

func TestExecuteWithRetry_Exhausted(t *testing.T) {
	c := testClient()
	calls := 0
	var notified []int

	err := c.ExecuteWithRetry(context.Background(), "topology", func(context.Context) error {
		calls++
		return errors.New("unavailable")
	}, func(attempt int, _ error, _ time.Duration) {
		notified = append(notified, attempt)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, notified)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Details, "after 3 attempts")
}
