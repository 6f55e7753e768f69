// Package httpserver assembles the service's single listener: the duplex
// websocket endpoints, the JSON routes, and the Prometheus scrape target.
package httpserver

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"

	"github.com/virtuolot/showroom-assist-service/internal/handler/rest"
	"github.com/virtuolot/showroom-assist-service/internal/handler/ws"
)

type RouterParams struct {
	fx.In

	Logger  *slog.Logger
	Shopper *ws.ShopperHandler
	Monitor *ws.MonitorHandler
	Collab  *ws.CollabHandler
	Rest    *rest.Handler
}

// NewRouter mounts every route the service exposes. The websocket endpoints
// stay outside the tracing and logging middleware: they hijack the connection,
// live for minutes, and do their own structured logging.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(api chi.Router) {
		api.Method(http.MethodGet, "/ws/call", p.Shopper)
		api.Method(http.MethodGet, "/ws/calls/monitor", p.Monitor)
		api.Method(http.MethodGet, "/ws/collaboration/{shopperId}", p.Collab)

		api.Group(func(g chi.Router) {
			g.Use(recoverMiddleware(p.Logger))
			g.Use(requestLogger(p.Logger))
			g.Use(otelhttp.NewMiddleware("showroom.api"))
			p.Rest.Register(g)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestLogger emits one debug line per finished JSON request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP_REQUEST",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote", r.RemoteAddr,
			)
		})
	}
}

func recoverMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					// [PANIC_RECOVERY] A handler bug must not take the listener down.
					logger.Error("HANDLER_PANIC",
						"panic", rec,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
