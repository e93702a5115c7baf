package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"membership-platform/internal/auth"
	"membership-platform/internal/middleware"
)

type stubUsers struct{ byID map[uint64]auth.User }

func (s *stubUsers) GetByEmail(context.Context, string) (auth.User, error) {
	return auth.User{}, sql.ErrNoRows
}

func (s *stubUsers) GetByID(_ context.Context, id uint64) (auth.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return auth.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *stubUsers) Create(context.Context, auth.User) (uint64, error)             { return 0, nil }
func (s *stubUsers) UpdateProfile(context.Context, uint64, *string, *string) error { return nil }
func (s *stubUsers) Delete(context.Context, uint64) error                          { return nil }

type stubSessions struct {
	rows    []auth.Session
	removed []string
}

func (s *stubSessions) Record(_ context.Context, userID uint64, raw, _, _ string) error {
	s.rows = append(s.rows, auth.Session{UserID: userID, TokenHash: auth.HashRefresh(raw)})
	return nil
}

func (s *stubSessions) Remove(_ context.Context, _ uint64, raw string) error {
	s.removed = append(s.removed, raw)
	return nil
}

func (s *stubSessions) ListByUser(_ context.Context, userID uint64) ([]auth.Session, error) {
	var out []auth.Session
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubCompanies struct{}

func (stubCompanies) Create(context.Context, string) (uint64, error) { return 1, nil }

type handlerFixture struct {
	codec    *auth.TokenCodec
	sessions *stubSessions
	h        *AuthHandler
	e        *echo.Echo
}

func newHandlerFixture() *handlerFixture {
	codec := auth.NewTokenCodec("handler-secret", "prod")
	sessions := &stubSessions{}
	users := &stubUsers{byID: map[uint64]auth.User{
		10: {ID: 10, Email: "m@example.com", Role: auth.RoleGeneral},
	}}
	svc := auth.NewService(users, sessions, stubCompanies{}, codec,
		auth.NewBlacklistStore(nil), auth.NewLoginLimiter(nil), bcrypt.MinCost)
	return &handlerFixture{
		codec:    codec,
		sessions: sessions,
		h:        NewAuthHandler(svc),
		e:        echo.New(),
	}
}

func cookieByName(res *http.Response, name string) *http.Cookie {
	for _, ck := range res.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestRefreshSetsNewAccessCookieOnly(t *testing.T) {
	f := newHandlerFixture()

	refresh, err := f.codec.IssueRefresh(10, "m@example.com", false)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Record(context.Background(), 10, refresh.Token, "", ""))

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: refresh.Token})
	rec := httptest.NewRecorder()

	require.NoError(t, f.h.Refresh(f.e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	res := rec.Result()
	access := cookieByName(res, middleware.AccessTokenCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteNoneMode, access.SameSite)

	cl, err := f.codec.Verify(access.Value)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cl.UserID)

	// The refresh cookie is untouched and the session row survives.
	assert.Nil(t, cookieByName(res, middleware.RefreshTokenCookie))
	assert.Len(t, f.sessions.rows, 1)
}

func TestRefreshWithoutCookie(t *testing.T) {
	f := newHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, f.h.Refresh(f.e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_REFRESH_TOKEN")
}

func TestRefreshAfterLogoutFails(t *testing.T) {
	f := newHandlerFixture()

	refresh, err := f.codec.IssueRefresh(10, "m@example.com", false)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Record(context.Background(), 10, refresh.Token, "", ""))

	// Simulate logout: the session row is removed.
	f.sessions.rows = nil

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: refresh.Token})
	rec := httptest.NewRecorder()

	require.NoError(t, f.h.Refresh(f.e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_REFRESH_TOKEN")
}

func TestLogoutClearsCookiesAndSession(t *testing.T) {
	f := newHandlerFixture()

	refresh, err := f.codec.IssueRefresh(10, "m@example.com", false)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Record(context.Background(), 10, refresh.Token, "", ""))

	// Route the request through the identity gate so the handler sees the
	// authenticated caller, as in production.
	access, err := f.codec.IssueAccess(10, "m@example.com")
	require.NoError(t, err)

	users := &stubUsers{byID: map[uint64]auth.User{10: {ID: 10, Email: "m@example.com", Role: auth.RoleGeneral}}}
	gate := middleware.IdentityGate(f.codec, users, auth.NewBlacklistStore(nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: access.Token})
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: refresh.Token})
	rec := httptest.NewRecorder()

	require.NoError(t, gate(f.h.Logout)(f.e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	res := rec.Result()
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		ck := cookieByName(res, name)
		require.NotNil(t, ck, "%s must be cleared", name)
		assert.Empty(t, ck.Value)
		assert.Equal(t, -1, ck.MaxAge)
	}
	assert.Equal(t, []string{refresh.Token}, f.sessions.removed)
}
