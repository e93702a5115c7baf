package handler

import (
	"context" // provides context with cancellation for DB calls
	"errors"
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls and event timestamps

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"membership-platform/internal/auth"
	"membership-platform/internal/middleware"
	"membership-platform/internal/queue"
	queue_publisher "membership-platform/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler { return &AuthHandler{Svc: svc} }

// ----- DTOs -----

type loginReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	KeepLogin bool   `json:"keep_login"`
}
type registerReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Memo        string `json:"memo"`
	CompanyName string `json:"company_name"`
}

type tokenPart struct {
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID        uint64  `json:"id"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	CompanyID *uint64 `json:"company_id,omitempty"`
	Memo      string  `json:"memo,omitempty"`
}

func toUserPart(u auth.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Role: string(u.Role), CompanyID: u.CompanyID, Memo: u.Memo}
}

// Login: verify credentials, set the cookie pair and record a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Login(ctx, auth.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		KeepLogin: req.KeepLogin,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return writeAuthError(c, err)
	}

	setTokenCookie(c, middleware.AccessTokenCookie, res.Access.Token, res.Access.Exp)
	setTokenCookie(c, middleware.RefreshTokenCookie, res.Refresh.Token, res.Refresh.Exp)

	_ = queue_publisher.PublishMemberEvent(ctx, memberEvent(queue.KindLoggedIn, res.User, c.RealIP()))

	return c.JSON(http.StatusOK, echo.Map{
		"user":    toUserPart(res.User),
		"access":  tokenPart{Expires: res.Access.Exp},
		"refresh": tokenPart{Expires: res.Refresh.Exp},
	})
}

// Refresh: exchange the refresh cookie for a new access token.  The refresh
// token itself is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := cookieValue(c, middleware.RefreshTokenCookie)
	if raw == "" {
		return writeAuthError(c, auth.ErrMissingRefreshToken)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	access, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		return writeAuthError(c, err)
	}

	setTokenCookie(c, middleware.AccessTokenCookie, access.Token, access.Exp)

	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Expires: access.Exp},
	})
}

// Logout: blacklist the presented access token, drop the matching session
// row and clear both cookies.  Authentication is enforced by the route.
func (h *AuthHandler) Logout(c echo.Context) error {
	id, ok := middleware.FromContext(c)
	if !ok {
		return writeAuthError(c, auth.ErrAuthenticationFailed)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	raw := cookieValue(c, middleware.RefreshTokenCookie)
	if err := h.Svc.Logout(ctx, id.UserID, id.JTI, raw); err != nil {
		return writeAuthError(c, err)
	}

	clearTokenCookie(c, middleware.AccessTokenCookie)
	clearTokenCookie(c, middleware.RefreshTokenCookie)

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Register: create an account one level below the acting user's role.  The
// route restricts acting roles; the service re-derives the assignment from
// the acting row regardless of what the client sends.
func (h *AuthHandler) Register(c echo.Context) error {
	id, ok := middleware.FromContext(c)
	if !ok {
		return writeAuthError(c, auth.ErrAuthenticationFailed)
	}

	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Svc.Register(ctx, id.UserID, auth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Memo:        req.Memo,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		return writeAuthError(c, err)
	}

	_ = queue_publisher.PublishMemberEvent(ctx, memberEvent(queue.KindRegistered, u, c.RealIP()))

	return c.JSON(http.StatusCreated, toUserPart(u))
}

// ----- helpers -----

func memberEvent(kind string, u auth.User, ip string) queue.MemberEvent {
	return queue.MemberEvent{
		Kind:       kind,
		UserID:     u.ID,
		Email:      u.Email,
		Role:       string(u.Role),
		CompanyID:  u.CompanyID,
		IP:         ip,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// setTokenCookie writes an HttpOnly, Secure, cross-site cookie whose max-age
// matches the token expiry, so browser and token state age out together.
func setTokenCookie(c echo.Context, name, value string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearTokenCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// writeAuthError maps a domain failure onto an HTTP response.  Anything
// outside the taxonomy is an unexpected fault and surfaces as a 500 without
// detail.
func writeAuthError(c echo.Context, err error) error {
	var ae *auth.Error
	if !errors.As(err, &ae) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(statusFor(ae), echo.Map{"error": ae.Message, "code": ae.Code})
}

func statusFor(ae *auth.Error) int {
	switch ae {
	case auth.ErrEmailAlreadyRegistered, auth.ErrCannotDeleteSuperAdmin:
		return http.StatusConflict
	case auth.ErrNoPermission:
		return http.StatusForbidden
	case auth.ErrRefreshTokenRequired:
		return http.StatusBadRequest
	default:
		return http.StatusUnauthorized
	}
}
