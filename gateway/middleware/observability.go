package middleware

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"orchai/observability"
)

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-Id"

type ObservabilityConfig struct {
	ServiceName string
	LogRequests bool
	Metrics     bool
	Tracing     bool
}

type Observability struct {
	cfg    ObservabilityConfig
	logger *slog.Logger
	tracer trace.Tracer
}

func NewObservability(cfg ObservabilityConfig, logger *slog.Logger) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "mmd-gateway"
	}
	return &Observability{
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer(cfg.ServiceName),
	}
}

// Middleware records metrics and a span for the named module. The chi route
// pattern is used as the method label so path parameters do not explode
// cardinality.
func (o *Observability) Middleware(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)

			ctx := r.Context()
			var span trace.Span
			if o.cfg.Tracing {
				ctx, span = o.tracer.Start(ctx, module, trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("request.id", requestID),
				))
			}
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			r = r.WithContext(ctx)
			next.ServeHTTP(recorder, r)

			route := r.Method + " " + r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = r.Method + " " + rctx.RoutePattern()
			}
			duration := time.Since(start)
			if span != nil {
				span.SetAttributes(
					attribute.String("http.route", route),
					attribute.Int("http.status_code", recorder.status),
				)
				span.End()
			}
			if o.cfg.Metrics {
				observability.ModuleMetrics().Observe(module, route, recorder.status, duration)
			}
			if o.cfg.LogRequests {
				o.logger.Info("request served",
					slog.String("module", module),
					slog.String("route", route),
					slog.Int("status", recorder.status),
					slog.String("requestId", requestID),
					slog.Duration("duration", duration))
			}
		})
	}
}

// MetricsHandler exposes the process-wide Prometheus registry.
func (o *Observability) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack supports the websocket upgrade on /v1/events/ws.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	s.wroteHeader = true
	return hijacker.Hijack()
}
