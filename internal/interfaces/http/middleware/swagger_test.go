package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSwaggerProtection(t *testing.T) {
	tests := []struct {
		name       string
		cfg        SwaggerConfig
		remoteAddr string
		want       int
	}{
		{"disabled", SwaggerConfig{Enabled: false}, "10.0.0.1:1234", http.StatusNotFound},
		{"open", SwaggerConfig{Enabled: true}, "203.0.113.7:1234", http.StatusOK},
		{"exact ip", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}}, "10.0.0.1:1234", http.StatusOK},
		{"cidr", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, "10.20.30.40:1234", http.StatusOK},
		{"outside whitelist", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8", "192.168.1.1"}}, "203.0.113.7:1234", http.StatusForbidden},
		{"garbage entries ignored", SwaggerConfig{Enabled: true, AllowedIPs: []string{"not-an-ip", "10.0.0.0/99"}}, "10.0.0.1:1234", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/swagger/*any", SwaggerProtection(tt.cfg), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest("GET", "/swagger/index.html", nil)
			req.RemoteAddr = tt.remoteAddr
			assert.Equal(t, tt.want, serve(router, req).Code)
		})
	}
}

func TestParseIPAllowlist(t *testing.T) {
	list, invalid := ParseIPAllowlist([]string{"10.0.0.7/8", " 192.168.1.1 ", "::1", "bogus"})

	assert.Equal(t, []string{"bogus"}, invalid)
	assert.Len(t, list, 3)
	assert.Equal(t, "10.0.0.0/8", list[0].String())

	assert.True(t, list.Allows("10.255.0.1"))
	assert.True(t, list.Allows("192.168.1.1"))
	assert.True(t, list.Allows("::ffff:192.168.1.1"))
	assert.True(t, list.Allows("::1"))
	assert.False(t, list.Allows("192.168.1.2"))
	assert.False(t, list.Allows(""))
}
