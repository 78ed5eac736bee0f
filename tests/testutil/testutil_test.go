package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
	"github.com/orderdesk/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActors(t *testing.T) {
	assert.Equal(t, Buyer("acme"), Buyer("acme"))
	assert.NotEqual(t, Buyer("acme").ID, Supplier("acme").ID)
	assert.Equal(t, shared.RoleSupplier, Supplier("x").Role)
	assert.True(t, Admin().IsAdmin())
}

func TestAPIClient(t *testing.T) {
	engine := gin.New()
	engine.POST("/api/v1/echo", func(c *gin.Context) {
		if c.GetHeader(middleware.HeaderActorRole) == "" {
			c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrCodeUnauthorized, "no actor"))
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
			"role": c.GetHeader(middleware.HeaderActorRole),
			"key":  c.GetHeader(middleware.HeaderIdempotencyKey),
		}))
	})
	client := NewAPIClient(t, engine, "/api/v1")

	resp := client.Do(Buyer("a"), http.MethodPost, "/echo", gin.H{}, WithIdempotencyKey("k1")).RequireStatus(t, http.StatusOK)
	data := DataAs[map[string]string](t, resp)
	assert.Equal(t, "BUYER", data["role"])
	assert.Equal(t, "k1", data["key"])
	assert.Empty(t, resp.ErrorCode())

	resp = client.Do(shared.Actor{}, http.MethodPost, "/echo", nil).RequireStatus(t, http.StatusUnauthorized)
	assert.Equal(t, dto.ErrCodeUnauthorized, resp.ErrorCode())
}

func TestRecordingHandler(t *testing.T) {
	h := NewRecordingHandler("a")
	assert.Equal(t, []string{"a"}, h.EventTypes())

	first := &shared.BaseDomainEvent{ID: uuid.New(), Type: "a", AggID: uuid.New()}
	second := &shared.BaseDomainEvent{ID: uuid.New(), Type: "b", AggID: first.AggID}
	other := &shared.BaseDomainEvent{ID: uuid.New(), Type: "a", AggID: uuid.New()}
	for _, ev := range []shared.DomainEvent{first, second, other} {
		require.NoError(t, h.Handle(context.Background(), ev))
	}

	assert.Equal(t, []string{"a", "b", "a"}, h.Types())
	assert.Len(t, h.For(first.AggID.String()), 2)
	assert.Empty(t, h.For(uuid.NewString()))
}

func TestContextWithTimeout(t *testing.T) {
	ctx := ContextWithTimeout(t, 10*time.Millisecond)
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
