package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLogConfig tunes the request log
type AccessLogConfig struct {
	// SkipPaths are logged only when the response is an error (health probes, swagger assets)
	SkipPaths []string
	// SlowRequest upgrades a successful request to a warning when it takes longer
	SlowRequest time.Duration
}

// GinMiddleware logs every request with the default access log settings
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return AccessLog(logger, AccessLogConfig{SkipPaths: []string{"/health", "/swagger/"}})
}

// AccessLog attaches the base logger to the request context, so handlers and services can call
// L(ctx), and writes one line per request once the handlers return. The level follows the
// status: 5xx errors, 4xx and slow requests warnings, everything else info.
func AccessLog(logger *zap.Logger, cfg AccessLogConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), logger))

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		if status < http.StatusBadRequest && skipped(c.Request.URL.Path, cfg.SkipPaths) {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := append(Fields(c.Request.Context()),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		)
		if query := c.Request.URL.RawQuery; query != "" {
			fields = append(fields, zap.String("query", query))
		}
		// the actor middleware runs after this one, so the caller is only known on the gin context
		if id := c.GetString(string(ActorIDKey)); id != "" && GetActorID(c.Request.Context()) == "" {
			fields = append(fields, zap.String("actor_id", id), zap.String("actor_role", c.GetString(string(ActorRoleKey))))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request rejected", fields...)
		case cfg.SlowRequest > 0 && latency > cfg.SlowRequest:
			logger.Warn("slow request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// Recovery turns a panic into a 500 with the error envelope and logs it with the stack
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				fields := append(Fields(c.Request.Context()),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stacktrace"),
				)
				logger.Error("panic recovered", fields...)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":       "ERR_INTERNAL",
						"message":    "An internal error occurred",
						"request_id": GetRequestID(c.Request.Context()),
					},
				})
			}
		}()
		c.Next()
	}
}
