package email

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerSender wraps an EmailSender in a circuit breaker.
// While the circuit is open SendEmail fails fast with ErrCircuitOpen,
// which callers treat like any other transient transport failure.
type BreakerSender struct {
	next   EmailSender
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger *slog.Logger
	hook   func(name, from, to string)
}

// BreakerOption configures a BreakerSender.
type BreakerOption func(*breakerSettings)

type breakerSettings struct {
	name        string
	maxFailures uint32
	openTimeout time.Duration
	logger      *slog.Logger
	hook        func(name, from, to string)
}

// WithBreakerName sets the breaker name used in logs and state hooks.
func WithBreakerName(name string) BreakerOption {
	return func(s *breakerSettings) { s.name = name }
}

// WithBreakerThreshold sets how many consecutive failures open the circuit.
func WithBreakerThreshold(n uint32) BreakerOption {
	return func(s *breakerSettings) {
		if n > 0 {
			s.maxFailures = n
		}
	}
}

// WithBreakerTimeout sets how long the circuit stays open before a probe is allowed.
func WithBreakerTimeout(d time.Duration) BreakerOption {
	return func(s *breakerSettings) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}

// WithBreakerLogger sets the logger for state transitions.
func WithBreakerLogger(logger *slog.Logger) BreakerOption {
	return func(s *breakerSettings) { s.logger = logger }
}

// WithBreakerStateHook registers a callback invoked on every state transition.
func WithBreakerStateHook(fn func(name, from, to string)) BreakerOption {
	return func(s *breakerSettings) { s.hook = fn }
}

// NewBreakerSender wraps next with a consecutive-failure circuit breaker.
// Parameter validation errors and recipient rejections never count as failures.
func NewBreakerSender(next EmailSender, opts ...BreakerOption) *BreakerSender {
	s := breakerSettings{
		name:        "email",
		maxFailures: 5,
		openTimeout: 30 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	b := &BreakerSender{next: next, logger: s.logger, hook: s.hook}
	b.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        s.name,
		MaxRequests: 1,
		Timeout:     s.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidParams) || errors.Is(err, ErrRecipientRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.LogAttrs(context.Background(), slog.LevelWarn, "email circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			if b.hook != nil {
				b.hook(name, from.String(), to.String())
			}
		},
	})

	return b
}

// SendEmail implements EmailSender.
func (b *BreakerSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.SendEmail(ctx, params)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrCircuitOpen, err)
	}
	return err
}

// State returns the current breaker state name: closed, half-open or open.
func (b *BreakerSender) State() string {
	return b.cb.State().String()
}
