package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/infrastructure/logger"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Request headers carrying the caller identity. Authentication happens upstream
// (gateway or identity proxy); this service trusts the resolved values.
const (
	RequestIDHeader      = "X-Request-ID"
	HeaderActorID        = "X-User-ID"
	HeaderActorRole      = "X-User-Role"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// ActorKey is the gin context key holding the resolved shared.Actor
const ActorKey = "actor"

// ActorConfig holds configuration for the actor middleware
type ActorConfig struct {
	// SkipPaths are paths served without an actor (health, docs)
	SkipPaths []string
	// SkipPathPrefixes are path prefixes served without an actor
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultActorConfig returns the default actor middleware configuration
func DefaultActorConfig() ActorConfig {
	return ActorConfig{
		SkipPaths:        []string{"/health", "/api/v1/system/ping", "/api/v1/system/info"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// ActorMiddleware resolves shared.Actor from the identity headers and rejects
// requests without a valid one with 401
func ActorMiddleware(cfg ActorConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range cfg.SkipPaths {
			if path == p {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		actor, msg := resolveActor(c)
		if msg != "" {
			if cfg.Logger != nil {
				cfg.Logger.Warn("actor resolution failed",
					zap.String("path", path),
					zap.String("reason", msg),
				)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, msg, c.GetString(string(logger.RequestIDKey)),
			))
			return
		}

		c.Set(ActorKey, actor)
		c.Set(string(logger.ActorIDKey), actor.ID.String())
		c.Set(string(logger.ActorRoleKey), actor.Role.String())

		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), actor.ID.String(), actor.Role.String()))

		c.Next()
	}
}

func resolveActor(c *gin.Context) (shared.Actor, string) {
	rawID := c.GetHeader(HeaderActorID)
	if rawID == "" {
		return shared.Actor{}, "Missing " + HeaderActorID + " header"
	}
	id, err := uuid.Parse(rawID)
	if err != nil || id == uuid.Nil {
		return shared.Actor{}, "Invalid " + HeaderActorID + " header"
	}
	role, ok := shared.ParseRole(c.GetHeader(HeaderActorRole))
	if !ok {
		return shared.Actor{}, "Missing or unknown " + HeaderActorRole + " header"
	}
	return shared.Actor{ID: id, Role: role}, ""
}

// GetActor retrieves the actor resolved by ActorMiddleware
func GetActor(c *gin.Context) (shared.Actor, bool) {
	if v, exists := c.Get(ActorKey); exists {
		if actor, ok := v.(shared.Actor); ok {
			return actor, true
		}
	}
	return shared.Actor{}, false
}
