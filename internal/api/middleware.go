package api

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalforge/arraysim/internal/logging"
)

const (
	requestIDHeader = "X-Request-Id"
	sessionIDHeader = "X-Session-Id"

	tracerName = "github.com/signalforge/arraysim/internal/api"
)

// instrument wraps a handler with the per-request plumbing: request-id
// sourcing, an annotated logger on the context, a server span, and the
// metrics recorder when one is configured.
func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	tracer := otel.Tracer(tracerName)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if incoming := r.Header.Get(requestIDHeader); incoming != "" {
			ctx = logging.ContextWithRequestID(ctx, incoming)
		}

		ctx, reqLog := logging.WithRequestLogger(ctx, s.log.With(
			logging.String("route", route),
			logging.String("method", r.Method),
		))
		ctx = logging.ContextWithLogger(ctx, reqLog)

		ctx, span := tracer.Start(ctx, "API/"+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		attrs := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("session", sessionID(r)),
		}
		if reqID := logging.RequestIDFromContext(ctx); reqID != "" {
			attrs = append(attrs, attribute.String("request_id", reqID))
		}
		span.SetAttributes(attrs...)

		h(w, r.WithContext(ctx))
	})

	if s.metrics != nil {
		return s.metrics.Instrument(route, handler)
	}
	return handler
}

// StartChildSpan starts a child span for internal operations within handlers.
func StartChildSpan(ctx context.Context, name string, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(extra...))
}

// sessionID extracts the session key from the request header, empty when the
// caller did not set one (the store maps that to the default session).
func sessionID(r *http.Request) string {
	return r.Header.Get(sessionIDHeader)
}
