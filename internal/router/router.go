package router // package router registers every HTTP route of the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-availability/internal/handler"
	"github.com/iliyamo/marketplace-availability/internal/middleware"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

// RegisterRoutes registers the unauthenticated health endpoints: /healthz always
// answers, /readyz pings the given dependencies.
func RegisterRoutes(e *echo.Echo, deps map[string]handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(deps))
}

// RegisterAuth registers token endpoints under /v1/auth and the protected
// /v1/me. mw (typically rate limiting) wraps every auth route.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", mw...)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout parses the bearer itself so a refresh token alone suffices.
	g.POST("/logout", a.Logout)

	me := e.Group("/v1/me", append([]echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleVendor, model.RoleAdmin),
	}, mw...)...)
	me.GET("", a.Me)
}

// RegisterAvailability mounts the same five window operations twice: for
// vendors acting on themselves and for admins acting on any vendor. mw
// runs after authentication, so rate limiting and caching see the caller.
func RegisterAvailability(e *echo.Echo, self, admin *handler.AvailabilityHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	vendor := e.Group("/v1/vendors/:vendor_id/availability",
		middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleVendor))
	vendor.Use(mw...)
	mountAvailability(vendor, self)

	elevated := e.Group("/v1/admin/vendors/:vendor_id/availability",
		middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	elevated.Use(mw...)
	mountAvailability(elevated, admin)
}

func mountAvailability(g *echo.Group, h *handler.AvailabilityHandler) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Edit)
	g.PATCH("/:id", h.Edit)
	g.DELETE("/:id", h.Delete)
}
