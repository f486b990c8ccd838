package queue

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/courier/pkg/notifications"
)

// ProcessorOption is a functional option for configuring a processor.
type ProcessorOption func(*processorOptions)

type processorOptions struct {
	interval       time.Duration
	batchSize      int
	concurrency    int
	attemptTimeout time.Duration
	staleAfter     time.Duration
	retention      time.Duration
	recorder       notifications.Recorder
	logger         *slog.Logger
	now            func() time.Time
}

// WithInterval sets how often the processor ticks.
func WithInterval(d time.Duration) ProcessorOption {
	return func(o *processorOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithBatchSize caps the number of entries claimed per tick.
func WithBatchSize(n int) ProcessorOption {
	return func(o *processorOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithConcurrency sets how many entries of one tick are attempted in parallel.
func WithConcurrency(n int) ProcessorOption {
	return func(o *processorOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithAttemptTimeout bounds a single delivery attempt.
func WithAttemptTimeout(d time.Duration) ProcessorOption {
	return func(o *processorOptions) {
		if d > 0 {
			o.attemptTimeout = d
		}
	}
}

// WithStaleAfter sets how long an entry may stay in sending before it is
// considered abandoned and returned to pending.
func WithStaleAfter(d time.Duration) ProcessorOption {
	return func(o *processorOptions) {
		if d > 0 {
			o.staleAfter = d
		}
	}
}

// WithRetention sets how long terminal entries are kept by stores without native expiry.
func WithRetention(d time.Duration) ProcessorOption {
	return func(o *processorOptions) {
		if d > 0 {
			o.retention = d
		}
	}
}

// WithDeliveryRecorder records every delivery attempt.
func WithDeliveryRecorder(r notifications.Recorder) ProcessorOption {
	return func(o *processorOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithProcessorLogger sets the logger for the processor.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(o *processorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithProcessorClock overrides the time source.
func WithProcessorClock(now func() time.Time) ProcessorOption {
	return func(o *processorOptions) {
		if now != nil {
			o.now = now
		}
	}
}
