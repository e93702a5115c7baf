package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"membership-platform/internal/auth"
	"membership-platform/internal/handler"
	"membership-platform/internal/middleware"
)

// RegisterRoutes registers routes that carry no auth requirements.  Currently
// it exposes only a health check, used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication and member-management routes.
// The identity gate runs on every /v1 route: it attaches an identity when a
// verifiable, non-blacklisted token is presented and otherwise lets the
// request through as anonymous.  Whether anonymity is acceptable is declared
// per route via the role guards.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler, gate echo.MiddlewareFunc) {
	v1 := e.Group("/v1", gate)

	// Session lifecycle.  Login and refresh are open; registration is only
	// available to roles with a downstream role to assign, and logout needs
	// a live identity to know which token to revoke.
	authGroup := v1.Group("/auth")
	authGroup.POST("/login", a.Login)
	authGroup.POST("/refresh", a.Refresh)
	authGroup.POST("/register", a.Register,
		middleware.RequireRoles(auth.RoleSuperAdmin, auth.RoleDistributor, auth.RoleAgent))
	authGroup.POST("/logout", a.Logout, middleware.RequireAuth())

	// Member management.
	users := v1.Group("/users")
	users.GET("/me", u.Me, middleware.RequireAuth())
	users.PATCH("/:id", u.Update,
		middleware.RequireRoles(auth.RoleSuperAdmin, auth.RoleDistributor, auth.RoleAgent))
	users.DELETE("/:id", u.Delete, middleware.RequireRoles(auth.RoleSuperAdmin))
}
