package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

// ErrOrderUnknown means the storefront has no order with the given orderId.
var ErrOrderUnknown = errors.New("order unknown to storefront")

// StorefrontClient calls the storefront order API behind a circuit breaker so
// a struggling storefront is not hammered by a backlog of events.
type StorefrontClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
}

type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

func NewStorefrontClient(baseURL string, client *http.Client, settings BreakerSettings, logger *slog.Logger) *StorefrontClient {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "storefront",
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		// an unknown order is the caller's problem, not the storefront's
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrOrderUnknown)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &StorefrontClient{
		baseURL: baseURL,
		client:  client,
		breaker: breaker,
	}
}

func (c *StorefrontClient) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.updateOrderStatus(ctx, orderID, status)
	})
	return err
}

func (c *StorefrontClient) updateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	data, err := json.Marshal(map[string]string{"status": string(status)})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/orders/%s/status", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrOrderUnknown, orderID)
	default:
		return fmt.Errorf("storefront returned status %d", resp.StatusCode)
	}
}
