package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// TracerName names the tracer obtained from the global provider.
	TracerName string
	// Propagator extracts the parent span context from request headers.
	Propagator propagation.TextMapPropagator
	SkipPaths  []string
}

// DefaultTracingConfig traces every request except probes and the live
// reload socket, and extracts W3C trace context headers.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		TracerName: "page-server",
		Propagator: propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
		SkipPaths:  []string{"/healthz", "/livez", "/readyz", "/__livereload"},
	}
}

// Tracing starts a server span for each request. Spans go to the global
// tracer provider, which is a no-op until one is installed.
func Tracing(config TracingConfig) func(http.Handler) http.Handler {
	tracer := otel.Tracer(config.TracerName)
	propagator := config.Propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasPrefix(r.URL.Path, config.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, r.Method+" "+normalizePath(r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
					attribute.String("client.address", getClientIP(r)),
					attribute.String("user_agent.original", r.UserAgent()),
				),
			)
			defer span.End()

			if id := GetRequestID(ctx); id != "" {
				span.SetAttributes(attribute.String("http.request.id", id))
			}

			wrapped := newStatusWriter(w)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.response.status_code", wrapped.statusCode))
			if label := routeLabel(r.URL.Path, wrapped.statusCode); label != normalizePath(r.URL.Path) {
				span.SetName(r.Method + " " + label)
			}
			if wrapped.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
			}
		})
	}
}
