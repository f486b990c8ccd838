package push

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerGateway wraps a Gateway in a circuit breaker.
// Only wholesale failures count against the breaker; per-token errors inside a
// successful call do not.
type BreakerGateway struct {
	next   Gateway
	cb     *gobreaker.CircuitBreaker[*BatchResponse]
	logger *slog.Logger
}

// NewBreakerGateway opens the circuit after maxFailures consecutive wholesale
// failures and probes again after openTimeout.
func NewBreakerGateway(next Gateway, maxFailures uint32, openTimeout time.Duration, logger *slog.Logger, onStateChange func(name, from, to string)) *BreakerGateway {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &BreakerGateway{next: next, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker[*BatchResponse](gobreaker.Settings{
		Name:        "push",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoTokens)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.LogAttrs(context.Background(), slog.LevelWarn, "push circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if onStateChange != nil {
				onStateChange(name, from.String(), to.String())
			}
		},
	})
	return b
}

// SendMulticast implements Gateway.
func (b *BreakerGateway) SendMulticast(ctx context.Context, msg Message) (*BatchResponse, error) {
	var partial *BatchResponse
	resp, err := b.cb.Execute(func() (*BatchResponse, error) {
		r, err := b.next.SendMulticast(ctx, msg)
		partial = r
		return r, err
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, errors.Join(ErrCircuitOpen, ErrGatewayUnavailable, err)
	case err != nil:
		return partial, err
	}
	return resp, nil
}

// State returns the current breaker state name.
func (b *BreakerGateway) State() string {
	return b.cb.State().String()
}

var _ Gateway = (*BreakerGateway)(nil)
