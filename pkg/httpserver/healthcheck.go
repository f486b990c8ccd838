package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/dmitrymomot/courier/pkg/logger"
)

// Check is a named readiness dependency.
type Check struct {
	Name string
	Func func(context.Context) error
}

// LivenessHandler always answers 200 "ALIVE".
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	}
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ReadinessHandler runs every check with its own timeout. It answers 200 when
// all pass and 503 otherwise, with the per-check result as JSON.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		res := readiness{Status: "READY", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK

		for _, c := range checks {
			err := runCheck(r.Context(), timeout, c.Func)
			if err == nil {
				res.Checks[c.Name] = "ok"
				continue
			}

			log.LogAttrs(r.Context(), slog.LevelError, "readiness check failed",
				logger.Component("httpserver"), slog.String("check", c.Name), logger.Error(err))
			res.Checks[c.Name] = err.Error()
			res.Status = "NOT_READY"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(res)
	}
}

func runCheck(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}
