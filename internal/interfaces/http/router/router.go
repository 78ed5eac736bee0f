package router

import (
	"github.com/gin-gonic/gin"
)

// APIVersion prefixes every domain route: /api/{version}/...
const APIVersion = "v1"

// Route is one endpoint relative to its group prefix.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Group is a prefix with its routes, middleware and nested groups. Middleware
// applies to nested groups too.
type Group struct {
	Name       string
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
	Groups     []Group
}

// Mount registers groups under rg.
func Mount(rg *gin.RouterGroup, groups ...Group) {
	for _, g := range groups {
		sub := rg.Group(g.Prefix, g.Middleware...)
		for _, r := range g.Routes {
			sub.Handle(r.Method, r.Path, r.Handler)
		}
		Mount(sub, g.Groups...)
	}
}

// MountAPI mounts groups under /api/{APIVersion} behind the given middleware.
func MountAPI(engine *gin.Engine, groups []Group, middleware ...gin.HandlerFunc) *gin.RouterGroup {
	api := engine.Group("/api/"+APIVersion, middleware...)
	Mount(api, groups...)
	return api
}
