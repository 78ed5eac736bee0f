package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/infrastructure/logger"
)

// RequestID reuses the caller's X-Request-ID or mints one, echoes it on the
// response and puts it on both the gin and the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(string(logger.RequestIDKey), id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// SecurityConfig selects the optional response hardening headers. HSTS only
// makes sense behind TLS and is off by default.
type SecurityConfig struct {
	HSTSEnabled           bool
	HSTSMaxAge            int // seconds
	HSTSIncludeSubdomains bool
	HSTSPreload           bool

	CSPEnabled   bool
	CSPDirective string

	PermissionsPolicyEnabled   bool
	PermissionsPolicyDirective string
}

// The API serves JSON plus the swagger UI, which needs inline script and style.
const (
	defaultCSP               = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'; base-uri 'self'"
	defaultPermissionsPolicy = "camera=(), geolocation=(), microphone=(), payment=(), usb=()"
)

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:                 365 * 24 * 60 * 60,
		HSTSIncludeSubdomains:      true,
		CSPEnabled:                 true,
		CSPDirective:               defaultCSP,
		PermissionsPolicyEnabled:   true,
		PermissionsPolicyDirective: defaultPermissionsPolicy,
	}
}

func Secure() gin.HandlerFunc {
	return SecureWithConfig(DefaultSecurityConfig())
}

func (cfg SecurityConfig) headers() http.Header {
	h := http.Header{
		"X-Frame-Options":        {"DENY"},
		"X-Content-Type-Options": {"nosniff"},
		"X-Xss-Protection":       {"1; mode=block"},
		"Referrer-Policy":        {"strict-origin-when-cross-origin"},
	}
	if cfg.CSPEnabled && cfg.CSPDirective != "" {
		h.Set("Content-Security-Policy", cfg.CSPDirective)
	}
	if cfg.PermissionsPolicyEnabled && cfg.PermissionsPolicyDirective != "" {
		h.Set("Permissions-Policy", cfg.PermissionsPolicyDirective)
	}
	if cfg.HSTSEnabled {
		hsts := "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
		h.Set("Strict-Transport-Security", hsts)
	}
	return h
}

// SecureWithConfig stamps the hardening headers on every response.
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	static := cfg.headers()
	return func(c *gin.Context) {
		out := c.Writer.Header()
		for k := range static {
			out.Set(k, static.Get(k))
		}
		c.Next()
	}
}

// Timeout bounds the request context; handlers and the transaction scope observe ctx.Done().
// A non-positive timeout leaves the context alone.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
