package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"membership-platform/internal/auth"
	"membership-platform/internal/middleware"
)

// UserHandler exposes profile and member-management endpoints.  Role
// restrictions live on the routes; the handler only resolves ids and maps
// service results.
type UserHandler struct {
	Svc *auth.Service
}

func NewUserHandler(svc *auth.Service) *UserHandler { return &UserHandler{Svc: svc} }

type updateUserReq struct {
	Password *string `json:"password"`
	Memo     *string `json:"memo"`
}

// Me returns the authenticated member's profile.
func (h *UserHandler) Me(c echo.Context) error {
	id, ok := middleware.FromContext(c)
	if !ok {
		return writeAuthError(c, auth.ErrAuthenticationFailed)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Svc.GetUser(ctx, id.UserID)
	if err != nil {
		return writeAuthError(c, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// Update changes another member's password and/or memo.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := middleware.FromContext(c)
	if !ok {
		return writeAuthError(c, auth.ErrAuthenticationFailed)
	}
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.UpdateUser(ctx, id.UserID, targetID, req.Password, req.Memo); err != nil {
		return writeAuthError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user updated"})
}

// Delete removes a member.  Super-admin accounts are refused by the service.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := middleware.FromContext(c)
	if !ok {
		return writeAuthError(c, auth.ErrAuthenticationFailed)
	}
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.DeleteUser(ctx, id.UserID, targetID); err != nil {
		return writeAuthError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
