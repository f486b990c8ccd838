package httpserver

import (
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Option configures the HTTP server. Options panic on values that can only
// come from a programming error.
type Option func(*config)

// WithAddr sets the listen address. Port 0 picks a free port; the bound
// address is passed to start hooks.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: WithAddr: empty address")
	}
	return func(c *config) { c.addr = addr }
}

// WithReadTimeout bounds reading an entire request.
func WithReadTimeout(d time.Duration) Option {
	return durationOption("WithReadTimeout", d, func(c *config) *time.Duration { return &c.readTimeout })
}

// WithWriteTimeout bounds writing a response.
func WithWriteTimeout(d time.Duration) Option {
	return durationOption("WithWriteTimeout", d, func(c *config) *time.Duration { return &c.writeTimeout })
}

// WithIdleTimeout bounds keep-alive idle time.
func WithIdleTimeout(d time.Duration) Option {
	return durationOption("WithIdleTimeout", d, func(c *config) *time.Duration { return &c.idleTimeout })
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return durationOption("WithShutdownTimeout", d, func(c *config) *time.Duration { return &c.shutdownTimeout })
}

func durationOption(name string, d time.Duration, field func(*config) *time.Duration) Option {
	if d <= 0 {
		panic(fmt.Sprintf("httpserver: %s: duration must be positive, got %s", name, d))
	}
	return func(c *config) { *field(c) = d }
}

// WithLogger sets the server logger. Nil discards logs.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithStartHook registers fn to run once the listener is bound.
func WithStartHook(fn func(addr net.Addr)) Option {
	if fn == nil {
		panic("httpserver: WithStartHook: nil hook")
	}
	return func(c *config) { c.startHooks = append(c.startHooks, fn) }
}

// WithStopHook registers fn to run after graceful shutdown completes.
func WithStopHook(fn func()) Option {
	if fn == nil {
		panic("httpserver: WithStopHook: nil hook")
	}
	return func(c *config) { c.stopHooks = append(c.stopHooks, fn) }
}
