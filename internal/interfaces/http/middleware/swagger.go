package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
)

// SwaggerConfig gates the /swagger routes.
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // addresses or CIDRs; empty admits every client
}

// IPAllowlist matches client addresses against a set of prefixes. A bare
// address is stored as a single-host prefix.
type IPAllowlist []netip.Prefix

// ParseIPAllowlist keeps the entries that parse and returns the rest.
func ParseIPAllowlist(entries []string) (IPAllowlist, []string) {
	var (
		list    IPAllowlist
		invalid []string
	)
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			list = append(list, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			list = append(list, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		invalid = append(invalid, e)
	}
	return list, invalid
}

// Allows reports whether addr falls inside any prefix. IPv4-mapped IPv6
// addresses are compared as IPv4.
func (l IPAllowlist) Allows(addr string) bool {
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range l {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// SwaggerProtection answers 404 while the docs are disabled and 403 to clients
// outside AllowedIPs. Entries that do not parse admit nobody.
func SwaggerProtection(cfg SwaggerConfig) gin.HandlerFunc {
	restricted := len(cfg.AllowedIPs) > 0
	allow, _ := ParseIPAllowlist(cfg.AllowedIPs)

	return func(c *gin.Context) {
		switch {
		case !cfg.Enabled:
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponse(
				dto.ErrCodeNotFound, "API documentation is not available"))
		case restricted && !allow.Allows(c.ClientIP()):
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
				dto.ErrCodeForbidden, "Access to API documentation is restricted"))
		default:
			c.Next()
		}
	}
}
