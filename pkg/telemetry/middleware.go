package telemetry

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/jaennil/guide_helper/backend/gcs"
)

// Tracer returns the service tracer from the global provider. Without InitTracer
// this is a no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// GinMiddleware returns a Gin middleware that creates spans for each HTTP request
func GinMiddleware() gin.HandlerFunc {
	tracer := Tracer()

	return func(c *gin.Context) {
		// Skip tracing for health checks and metrics endpoints
		path := c.Request.URL.Path
		if strings.HasSuffix(path, "/healthz") || path == "/metrics" {
			c.Next()
			return
		}

		// Extract context from headers (for distributed tracing)
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		spanName := c.Request.Method + " " + c.FullPath()
		ctx, span := tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(c.Request.Method),
				semconv.URLPath(path),
				semconv.HTTPRoute(c.FullPath()),
				semconv.ServerAddress(c.Request.Host),
				semconv.UserAgentOriginal(c.Request.UserAgent()),
				semconv.ClientAddress(c.ClientIP()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(c.Writer.Header()))

		c.Next()

		statusCode := c.Writer.Status()
		span.SetAttributes(
			semconv.HTTPResponseStatusCode(statusCode),
			attribute.Int("http.response.size", c.Writer.Size()),
		)

		if statusCode >= 500 {
			span.SetStatus(codes.Error, c.Errors.String())
			if len(c.Errors) > 0 {
				span.RecordError(c.Errors.Last())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
