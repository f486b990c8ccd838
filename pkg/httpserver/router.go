package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/courier/pkg/logger"
)

// Routes are the handlers mounted by NewRouter. Nil handlers are not mounted.
type Routes struct {
	Realtime     http.Handler // GET /ws
	Metrics      http.Handler // GET /metrics
	Checks       []Check      // GET /readyz
	ProbeTimeout time.Duration
}

// NewRouter builds the ops router: /healthz, /readyz, and optionally /ws and /metrics.
func NewRouter(log *slog.Logger, routes Routes) chi.Router {
	if log == nil {
		log = logger.Discard()
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog(log))

	r.Get("/healthz", LivenessHandler())
	r.Get("/readyz", ReadinessHandler(log, routes.ProbeTimeout, routes.Checks...))
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}
	if routes.Realtime != nil {
		r.Method(http.MethodGet, "/ws", routes.Realtime)
	}
	return r
}

// AccessLog logs one debug record per request. Probe and scrape paths are
// logged only on non-2xx responses.
func AccessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelDebug
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			if quietPath(r.URL.Path) && status < http.StatusMultipleChoices {
				return
			}
			log.LogAttrs(r.Context(), level, "http request",
				logger.Component("httpserver"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.String("request_id", RequestIDFromContext(r.Context())),
				logger.Duration(time.Since(start)),
			)
		})
	}
}

func quietPath(p string) bool {
	return p == "/healthz" || p == "/readyz" || p == "/metrics"
}
