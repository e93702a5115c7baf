package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"membership-platform/internal/auth"
)

// Cookie names used for the token pair.  The identity gate reads the access
// cookie; the auth handlers set and clear both.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// identityKey is the context key under which the gate stores the resolved
// identity.
const identityKey = "identity"

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID uint64
	Email  string
	Role   auth.Role
	JTI    string
}

// FromContext returns the identity resolved by IdentityGate, if any.
func FromContext(c echo.Context) (Identity, bool) {
	id, ok := c.Get(identityKey).(Identity)
	return id, ok
}

// IdentityGate extracts a bearer credential, preferring the access-token
// cookie and falling back to the Authorization header, verifies it and
// attaches the resolved identity to the request context.  An absent or
// unverifiable token lets the request continue as anonymous — whether that
// is acceptable is decided by the per-route guards, so the gate never leaks
// whether a token was malformed, expired or missing.  A valid token whose
// jti has been blacklisted is the one hard failure at this stage.
func IdentityGate(codec *auth.TokenCodec, users auth.UserStore, blacklist *auth.BlacklistStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c)
			if raw == "" {
				return next(c)
			}

			claims, err := codec.Verify(raw)
			if err != nil || claims.Kind != "" {
				// Verification failures (and refresh tokens posing as access
				// tokens) leave the request anonymous instead of failing it.
				return next(c)
			}

			revoked, err := blacklist.IsBlacklisted(c.Request().Context(), claims.JTI)
			if err != nil || revoked {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": auth.ErrAuthenticationFailed.Message,
					"code":  auth.ErrAuthenticationFailed.Code,
				})
			}

			// Resolve the backing user so downstream guards see the current
			// role, not one baked into an old token.  A missing user row
			// degrades to anonymous.
			u, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				return next(c)
			}

			c.Set(identityKey, Identity{
				UserID: u.ID,
				Email:  u.Email,
				Role:   u.Role,
				JTI:    claims.JTI,
			})
			return next(c)
		}
	}
}

// extractToken returns the raw access token from the cookie or, failing
// that, from a "Bearer" Authorization header.  Empty when neither is set.
func extractToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessTokenCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
