package queue

import "time"

// Config holds the retry queue and processor configuration.
type Config struct {
	IntervalMS       int           `env:"NOTIFICATION_QUEUE_INTERVAL_MS" envDefault:"30000"`
	BatchSize        int           `env:"NOTIFICATION_QUEUE_BATCH_SIZE" envDefault:"100"`
	Concurrency      int           `env:"NOTIFICATION_QUEUE_CONCURRENCY" envDefault:"10"`
	AttemptTimeout   time.Duration `env:"NOTIFICATION_QUEUE_ATTEMPT_TIMEOUT" envDefault:"30s"`
	FallbackCapacity int           `env:"NOTIFICATION_QUEUE_FALLBACK_CAPACITY" envDefault:"1000"`
	Retention        time.Duration `env:"NOTIFICATION_QUEUE_RETENTION" envDefault:"720h"`
}

// Interval returns the tick interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// ProcessorOptions converts the config into processor options.
// Zero values keep the processor defaults.
func (c Config) ProcessorOptions() []ProcessorOption {
	return []ProcessorOption{
		WithInterval(c.Interval()),
		WithBatchSize(c.BatchSize),
		WithConcurrency(c.Concurrency),
		WithAttemptTimeout(c.AttemptTimeout),
		WithRetention(c.Retention),
	}
}
