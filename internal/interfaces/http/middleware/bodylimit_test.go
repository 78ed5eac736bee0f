package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyLimit(t *testing.T) {
	SetupValidator()
	router := gin.New()
	router.Use(BodyLimit(64))
	router.POST("/lines", func(c *gin.Context) {
		var req lineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	oversized := `{"unit":"G","quantity":1,"price":1,"note":"` + strings.Repeat("x", 200) + `"}`

	tests := []struct {
		name          string
		body          string
		contentLength int64
		want          int
	}{
		{"within limit", `{"unit":"G","quantity":1,"price":1}`, 0, http.StatusNoContent},
		{"declared length too large", oversized, int64(len(oversized)), http.StatusRequestEntityTooLarge},
		{"streamed body too large", oversized, -1, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/lines", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.contentLength != 0 {
				req.ContentLength = tt.contentLength
			}
			w := serve(router, req)

			require.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusRequestEntityTooLarge {
				var resp dto.Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, dto.ErrCodeBodyTooLarge, resp.Error.Code)
			}
		})
	}
}

func TestBodyLimit_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimit(0))
	router.POST("/echo", func(c *gin.Context) {
		b, err := c.GetRawData()
		require.NoError(t, err)
		c.String(http.StatusOK, "%d", len(b))
	})

	body := strings.Repeat("x", 4096)
	w := serve(router, httptest.NewRequest("POST", "/echo", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4096", w.Body.String())
}
