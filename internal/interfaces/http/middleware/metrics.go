package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/orderdesk/backend/internal/infrastructure/logger"
	"github.com/orderdesk/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records request count, latency, response size and in-flight requests.
// Routes are reported by pattern ("/api/v1/orders/:id") and callers by role only.
// A nil meter disables the middleware.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}
	requests, err := telemetry.HTTPRequests.Counter(meter)
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.HTTPDuration.Histogram(meter)
	if err != nil {
		return nil, err
	}
	size, err := telemetry.HTTPResponseSize.Histogram(meter)
	if err != nil {
		return nil, err
	}
	inFlight, err := telemetry.HTTPInFlight.UpDownCounter(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		inFlight.Add(ctx, 1)
		defer inFlight.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		endpoint := metric.WithAttributes(
			telemetry.LabelMethod.String(c.Request.Method),
			telemetry.LabelRoute.String(route),
		)
		outcome := []attribute.KeyValue{
			telemetry.LabelMethod.String(c.Request.Method),
			telemetry.LabelRoute.String(route),
			telemetry.LabelStatus.Int(c.Writer.Status()),
		}
		if role := c.GetString(string(logger.ActorRoleKey)); role != "" {
			outcome = append(outcome, telemetry.LabelRole.String(role))
		}

		requests.Add(ctx, 1, metric.WithAttributes(outcome...))
		duration.Record(ctx, time.Since(start).Seconds(), endpoint)
		if n := c.Writer.Size(); n > 0 {
			size.Record(ctx, float64(n), endpoint)
		}
	}, nil
}
