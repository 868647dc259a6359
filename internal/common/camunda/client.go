package camunda

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"seller-onboarding/internal/common/errors"
)

const defaultConnectionTimeout = 10 * time.Second

// Client is the broker connection shared by the onboarding job workers.
type Client struct {
	zb      zbc.Client
	timeout time.Duration
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	// ConnectionTimeout bounds each topology request. Zero means 10s.
	ConnectionTimeout time.Duration
}

// NewClientWithConfig dials the gateway and fails unless the broker answers a
// topology request in time.
func NewClientWithConfig(cfg *ClientConfig) (*Client, error) {
	timeout := cfg.ConnectionTimeout
	if timeout <= 0 {
		timeout = defaultConnectionTimeout
	}

	zb, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client for %s: %w", cfg.GatewayAddress, err)
	}

	c := &Client{zb: zb, timeout: timeout}
	if err := c.HealthCheck(context.Background()); err != nil {
		_ = zb.Close()
		return nil, err
	}
	return c, nil
}

// GetClient exposes the raw client for worker registration.
func (c *Client) GetClient() zbc.Client {
	return c.zb
}

func (c *Client) Close() error {
	return c.zb.Close()
}

// HealthCheck sends a topology request bounded by the connection timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.zb.NewTopologyCommand().Send(ctx); err != nil {
		return classifyBrokerError("topology", err)
	}
	return nil
}

// classifyBrokerError maps a gRPC failure onto the onboarding error taxonomy
// by status code.
func classifyBrokerError(operation string, err error) *errors.StandardError {
	op := "zeebe " + operation
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return errors.NewTimeoutError(op, err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return errors.NewUnauthorizedError(fmt.Sprintf("%s: %v", op, err))
	case codes.NotFound:
		return errors.NewNotFoundError("zeebe resource", operation)
	default:
		if err == context.DeadlineExceeded {
			return errors.NewTimeoutError(op, err)
		}
		return errors.NewNetworkError(op, err)
	}
}
