// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/holomush/authd/internal/web"

// RequestRecorder receives one event per served request.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// RouterOption configures NewRouter.
type RouterOption func(*routerConfig)

type routerConfig struct {
	logger   *slog.Logger
	recorder RequestRecorder
	tracer   trace.Tracer
}

// WithRequestLogger logs one line per request.
func WithRequestLogger(logger *slog.Logger) RouterOption {
	return func(c *routerConfig) { c.logger = logger }
}

// WithRequestRecorder records per-route request metrics.
func WithRequestRecorder(r RequestRecorder) RouterOption {
	return func(c *routerConfig) { c.recorder = r }
}

// WithRouterTracer overrides the tracer taken from the global otel provider.
func WithRouterTracer(t trace.Tracer) RouterOption {
	return func(c *routerConfig) { c.tracer = t }
}

// NewRouter mounts the handler's routes on a chi router.
func NewRouter(h *Handler, opts ...RouterOption) chi.Router {
	cfg := routerConfig{tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StripSlashes)
	r.Use(instrument(cfg))
	r.Use(middleware.Recoverer)

	r.Get("/", h.Index)
	r.Post("/users", h.RegisterUser)
	r.Post("/sessions", h.Login)
	r.Delete("/sessions", h.Logout)
	r.Get("/profile", h.Profile)
	r.Post("/reset_password", h.ResetPasswordToken)
	r.Put("/reset_password", h.UpdatePassword)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed)
	})

	return r
}

// instrument wraps each request in a span, and logs and records it once the
// matched route is known.
func instrument(cfg routerConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := cfg.tracer.Start(r.Context(), "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("http.request.method", r.Method)))
			defer span.End()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(ctx)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			elapsed := time.Since(start)

			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			if cfg.recorder != nil {
				cfg.recorder.RecordHTTPRequest(r.Method, route, status, elapsed)
			}
			if cfg.logger != nil {
				cfg.logger.InfoContext(ctx, "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"route", route,
					"status", status,
					"duration_ms", elapsed.Milliseconds(),
					"request_id", middleware.GetReqID(ctx),
				)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
