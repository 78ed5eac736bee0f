package logger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// requestContext stands in for the request id and actor middlewares
func requestContext(c *gin.Context) {
	c.Set(string(RequestIDKey), "req-77")
	ctx := WithRequestID(c.Request.Context(), "req-77")
	if c.GetHeader("X-User-ID") != "" {
		c.Set(string(ActorIDKey), c.GetHeader("X-User-ID"))
		c.Set(string(ActorRoleKey), "ADMIN")
	}
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func serve(t *testing.T, engine *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAccessLog_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		sleep   time.Duration
		level   zapcore.Level
		message string
	}{
		{"success", http.StatusOK, 0, zapcore.InfoLevel, "request"},
		{"client error", http.StatusConflict, 0, zapcore.WarnLevel, "request rejected"},
		{"server error", http.StatusInternalServerError, 0, zapcore.ErrorLevel, "request failed"},
		{"slow success", http.StatusOK, 30 * time.Millisecond, zapcore.WarnLevel, "slow request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			engine := gin.New()
			engine.Use(AccessLog(zap.New(core), AccessLogConfig{SlowRequest: 10 * time.Millisecond}))
			engine.POST("/orders/:id/status", func(c *gin.Context) {
				time.Sleep(tt.sleep)
				c.Status(tt.status)
			})

			serve(t, engine, http.MethodPost, "/orders/42/status?dry=1", nil)

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, tt.message, entry.Message)

			fields := entry.ContextMap()
			assert.Equal(t, "/orders/:id/status", fields["route"])
			assert.Equal(t, "/orders/42/status", fields["path"])
			assert.Equal(t, "dry=1", fields["query"])
			assert.EqualValues(t, tt.status, fields["status"])
		})
	}
}

func TestAccessLog_RequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	engine := gin.New()
	engine.Use(AccessLog(zap.New(core), AccessLogConfig{}), requestContext)
	engine.GET("/stock", func(c *gin.Context) {
		// services below the handler see the access logger through the request context
		L(c.Request.Context()).Info("stock read")
		c.Status(http.StatusOK)
	})

	serve(t, engine, http.MethodGet, "/stock", http.Header{"X-User-Id": {"admin-1"}})

	require.Equal(t, 2, logs.Len())
	inner := logs.All()[0].ContextMap()
	assert.Equal(t, "req-77", inner["request_id"])

	access := logs.All()[1].ContextMap()
	assert.Equal(t, "req-77", access["request_id"])
	assert.Equal(t, "admin-1", access["actor_id"])
	assert.Equal(t, "ADMIN", access["actor_role"])
}

func TestAccessLog_SkipPaths(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	engine := gin.New()
	engine.Use(GinMiddleware(zap.New(core)))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/swagger/*any", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(t, engine, http.MethodGet, "/health", nil)
	serve(t, engine, http.MethodGet, "/swagger/index.html", nil)
	assert.Equal(t, 0, logs.Len())

	serve(t, engine, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, 1, logs.Len(), "prefix match only applies to entries ending in /")

	serve(t, engine, http.MethodGet, "/unknown", nil)
	assert.Equal(t, "unmatched", logs.All()[1].ContextMap()["route"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	engine := gin.New()
	engine.Use(requestContext, Recovery(zap.New(core)))
	engine.GET("/boom", func(*gin.Context) { panic("ledger exploded") })

	w := serve(t, engine, http.MethodGet, "/boom", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "ERR_INTERNAL", body.Error.Code)
	assert.Equal(t, "req-77", body.Error.RequestID)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "ledger exploded", entry.ContextMap()["panic"])
	assert.Equal(t, "req-77", entry.ContextMap()["request_id"])
}
