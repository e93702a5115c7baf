package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"membership-platform/internal/auth"
)

// RequireAuth enforces that IdentityGate resolved an identity.  Routes that
// only need "some logged-in member" use this instead of a role list.
func RequireAuth() echo.MiddlewareFunc {
	return RequireRoles(auth.RoleSuperAdmin, auth.RoleDistributor, auth.RoleAgent, auth.RoleGeneral)
}

// RequireRoles returns a middleware that allows the request iff the resolved
// identity's role is in the given set.  An empty set allows everyone.  When
// roles are declared, the absence of an identity is itself a failure: the
// gate ran earlier and left the request anonymous, so the caller is either
// unauthenticated or presented an unusable token.
func RequireRoles(roles ...auth.Role) echo.MiddlewareFunc {
	// Build a set of allowed roles for constant-time lookups.
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(allowed) == 0 {
				return next(c)
			}
			id, ok := FromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": auth.ErrAuthenticationFailed.Message,
					"code":  auth.ErrAuthenticationFailed.Code,
				})
			}
			if !allowed[id.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": auth.ErrNoPermission.Message,
					"code":  auth.ErrNoPermission.Code,
				})
			}
			return next(c)
		}
	}
}
