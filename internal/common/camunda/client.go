// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"probate-resolver/internal/common/errors"
	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/common/retry"
)

// Client wraps the Zeebe gRPC client with connection retry and error mapping.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	Retry                  retry.Policy
}

// DefaultRetryPolicy is used while the broker is still coming up.
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 10,
		BaseDelay:   2 * time.Second,
		Factor:      2,
		MaxDelay:    30 * time.Second,
	}
}

// NewClient connects to a plaintext gateway with default settings.
func NewClient(ctx context.Context, address string, log logger.Logger) (*Client, error) {
	return NewClientWithConfig(ctx, &ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		Retry:                  DefaultRetryPolicy(),
	}, log)
}

// NewClientWithConfig creates the Zeebe client and waits for the gateway to
// answer a topology request.
func NewClientWithConfig(ctx context.Context, config *ClientConfig, log logger.Logger) (*Client, error) {
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, config: config}
	err = c.ExecuteWithRetry(ctx, "topology", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, config.ConnectionTimeout)
		defer cancel()
		_, err := zeebeClient.NewTopologyCommand().Send(ctx)
		return err
	}, func(attempt int, err error, next time.Duration) {
		log.Warn("zeebe gateway not ready, retrying", map[string]interface{}{
			"gateway":     config.GatewayAddress,
			"attempt":     attempt,
			"nextRetryIn": next.String(),
			"error":       err.Error(),
		})
	})
	if err != nil {
		zeebeClient.Close()
		return nil, err
	}
	return c, nil
}

// GetClient returns the raw Zeebe client for job worker registration.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// ExecuteWithRetry runs a Zeebe command under the client's retry policy.
// Only transient failures are retried; the final error is a StandardError.
func (c *Client) ExecuteWithRetry(ctx context.Context, operation string, command func(context.Context) error, notify retry.Notify) error {
	attempts := 0
	err := retry.Do(ctx, c.config.Retry, func(ctx context.Context, attempt int) error {
		attempts = attempt
		err := command(ctx)
		if err != nil && !isRetryableZeebeError(err) {
			return retry.Permanent(err)
		}
		return err
	}, notify)
	if err != nil {
		return mapZeebeError(err, operation, attempts)
	}
	return nil
}

// isRetryableZeebeError checks if the error is transient and should be retried.
func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
		"resource exhausted",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// mapZeebeError converts a Zeebe failure into a BROKER_UNAVAILABLE error.
func mapZeebeError(err error, operation string, attempts int) error {
	msg := fmt.Sprintf("Zeebe operation '%s' failed", operation)
	if attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", attempts)
	}
	return errors.NewBrokerUnavailableError(operation, isRetryableZeebeError(err), fmt.Errorf("%s: %w", msg, err))
}

// HealthCheck performs a topology request against the gateway.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
