package httpserver_test

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/courier/pkg/httpserver"
)

// runServer starts srv on a free loopback port and returns its base URL and
// the channel Run reports on.
func runServer(t *testing.T, ctx context.Context, handler http.Handler, opts ...httpserver.Option) (string, <-chan error, *httpserver.Server) {
	t.Helper()

	bound := make(chan net.Addr, 1)
	opts = append([]httpserver.Option{
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(200 * time.Millisecond),
		httpserver.WithStartHook(func(a net.Addr) { bound <- a }),
	}, opts...)
	srv := httpserver.New(opts...)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, handler) }()

	select {
	case a := <-bound:
		return "http://" + a.String(), done, srv
	case err := <-done:
		require.FailNow(t, "run returned before listening", "%v", err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "server did not start")
	}
	return "", nil, nil
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err, "run")
	case <-time.After(2 * time.Second):
		require.FailNow(t, "run did not finish")
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("serves until context is cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		base, done, srv := runServer(t, ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		resp, err := http.Get(base)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)

		cancel()
		waitDone(t, done)
		require.NoError(t, srv.Shutdown(context.Background()), "shutdown after run is a no-op")
	})

	t.Run("nil handler serves 404", func(t *testing.T) {
		t.Parallel()

		base, done, srv := runServer(t, context.Background(), nil)
		resp, err := http.Get(base)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		require.NoError(t, srv.Shutdown(context.Background()))
		waitDone(t, done)
	})

	t.Run("bind failure", func(t *testing.T) {
		t.Parallel()

		err := httpserver.New(httpserver.WithAddr(":invalid")).Run(context.Background(), nil)
		assert.ErrorIs(t, err, httpserver.ErrStart)
	})

	t.Run("second run is rejected", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		_, done, srv := runServer(t, ctx, nil)

		err := srv.Run(context.Background(), nil)
		assert.ErrorIs(t, err, httpserver.ErrStart)
		assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)

		cancel()
		waitDone(t, done)
	})

	t.Run("handlers observe cancellation", func(t *testing.T) {
		t.Parallel()

		entered := make(chan struct{})
		released := make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())
		base, done, _ := runServer(t, ctx, http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			close(entered)
			<-r.Context().Done()
			close(released)
		}), httpserver.WithShutdownTimeout(time.Second))

		go func() {
			if resp, err := http.Get(base); err == nil {
				_ = resp.Body.Close()
			}
		}()

		select {
		case <-entered:
		case <-time.After(3 * time.Second):
			require.FailNow(t, "handler not reached")
		}
		cancel()

		select {
		case <-released:
		case <-time.After(time.Second):
			require.FailNow(t, "handler context not cancelled")
		}
		waitDone(t, done)
	})
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	t.Run("manual shutdown ends run", func(t *testing.T) {
		t.Parallel()

		_, done, srv := runServer(t, context.Background(), nil)
		require.NoError(t, srv.Shutdown(context.Background()))
		require.NoError(t, srv.Shutdown(context.Background()), "repeated shutdown")
		waitDone(t, done)
	})

	t.Run("before run is a no-op", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, httpserver.New().Shutdown(context.Background()))
	})

	t.Run("hooks run once each", func(t *testing.T) {
		t.Parallel()

		var stops atomic.Int32
		_, done, srv := runServer(t, context.Background(), nil,
			httpserver.WithStopHook(func() { stops.Add(1) }))

		require.NoError(t, srv.Shutdown(context.Background()))
		require.NoError(t, srv.Shutdown(context.Background()))
		waitDone(t, done)
		assert.Equal(t, int32(1), stops.Load())
	})
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	tests := map[string]func(){
		"addr":       func() { httpserver.WithAddr("") },
		"read":       func() { httpserver.WithReadTimeout(-time.Second) },
		"write":      func() { httpserver.WithWriteTimeout(0) },
		"idle":       func() { httpserver.WithIdleTimeout(-time.Second) },
		"shutdown":   func() { httpserver.WithShutdownTimeout(0) },
		"start hook": func() { httpserver.WithStartHook(nil) },
		"stop hook":  func() { httpserver.WithStopHook(nil) },
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, fn)
		})
	}

	assert.NotPanics(t, func() { httpserver.WithLogger(nil) })
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	bound := make(chan net.Addr, 1)
	srv := httpserver.NewFromConfig(
		httpserver.Config{Addr: "127.0.0.1:0", ShutdownTimeout: 50 * time.Millisecond, ReadTimeout: time.Second},
		httpserver.WithStartHook(func(a net.Addr) { bound <- a }),
	)

	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background(), nil) }()

	a := <-bound
	resp, err := http.Get("http://" + a.String())
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	waitDone(t, done)
}
