package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/ids"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

const (
	// RequestIDHeader carries the request id in and out.
	RequestIDHeader = "X-Request-ID"
	// LocalRequestID and LocalUserID are fiber locals read by the logger.
	LocalRequestID = "request_id"
	LocalUserID    = "user_id"
)

var httpTracer = otel.Tracer("github.com/deskline/helpdesk-service/internal/observability")

// RequestLogger assigns a request id, opens the server span, records
// metrics and logs each request.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = ids.New()
		}
		c.Locals(LocalRequestID, requestID)
		c.Set(RequestIDHeader, requestID)

		ctx, span := httpTracer.Start(c.UserContext(), c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("request.id", requestID)))
		defer span.End()
		c.SetUserContext(ctx)

		metrics.trackInFlight(1)
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)
		metrics.trackInFlight(-1)

		status := c.Response().StatusCode()
		if err != nil {
			status = apperrors.ToDomainError(err).HTTPStatus
		}
		route := c.Route().Path
		metrics.RecordRequest(route, c.Method(), status, duration)
		span.SetAttributes(attribute.String("http.route", route), attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		if userID, ok := c.Locals(LocalUserID).(string); ok && userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if sc := span.SpanContext(); sc.IsValid() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		logger.Info("request", fields...)
		return err
	}
}

// RequestID returns the id assigned to the current request.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalRequestID).(string)
	return id
}
