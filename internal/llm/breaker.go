package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tech1ee/finuts/internal/common"
)

// BreakerClient wraps a Client with a circuit breaker: after repeated
// provider failures it reports unavailable instead of spending budget on
// calls that will not succeed.
type BreakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker[CompletionResponse]
}

// NewBreakerClient wraps inner with failure-driven availability.
func NewBreakerClient(inner Client) *BreakerClient {
	settings := gobreaker.Settings{
		Name:    "llm-provider",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerClient{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[CompletionResponse](settings),
	}
}

// Complete runs the call through the breaker.
func (b *BreakerClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	resp, err := b.cb.Execute(func() (CompletionResponse, error) {
		return b.inner.Complete(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return CompletionResponse{}, fmt.Errorf("%w: circuit breaker rejected the call", common.ErrProviderUnavailable)
	}
	return resp, err
}

// IsAvailable reports false while the breaker is open.
func (b *BreakerClient) IsAvailable() bool {
	if b.cb.State() == gobreaker.StateOpen {
		return false
	}
	return b.inner.IsAvailable()
}
