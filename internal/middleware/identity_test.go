package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membership-platform/internal/auth"
)

// stubUsers is a minimal auth.UserStore for gate tests.
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

func (s *stubUsers) Create(context.Context, auth.User) (uint64, error)           { return 0, nil }
func (s *stubUsers) UpdateProfile(context.Context, uint64, *string, *string) error { return nil }
func (s *stubUsers) Delete(context.Context, uint64) error                        { return nil }

// mapCache backs the blacklist in gate tests.
type mapCache struct{ data map[string]string }

func (m *mapCache) Get(_ context.Context, key string) (string, error) { return m.data[key], nil }
func (m *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.data[key] = value
	return nil
}
func (m *mapCache) Del(_ context.Context, key string) error { delete(m.data, key); return nil }
func (m *mapCache) Incr(context.Context, string) (int64, error) { return 0, nil }
func (m *mapCache) Expire(context.Context, string, time.Duration) error { return nil }

type gateFixture struct {
	codec     *auth.TokenCodec
	users     *stubUsers
	cache     *mapCache
	blacklist *auth.BlacklistStore
	e         *echo.Echo
}

func newGateFixture() *gateFixture {
	f := &gateFixture{
		codec: auth.NewTokenCodec("gate-secret", "prod"),
		users: &stubUsers{byID: map[uint64]auth.User{
			10: {ID: 10, Email: "agent@example.com", Role: auth.RoleAgent},
		}},
		cache: &mapCache{data: map[string]string{}},
	}
	f.blacklist = auth.NewBlacklistStore(f.cache)
	f.e = echo.New()
	return f
}

// run sends a request through the gate (plus optional extra middleware) into
// a probe handler that reports the resolved identity.
func (f *gateFixture) run(t *testing.T, decorate func(*http.Request), extra ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	var seen *Identity
	h := func(c echo.Context) error {
		if id, ok := FromContext(c); ok {
			seen = &id
		}
		return c.String(http.StatusOK, "ok")
	}
	chain := h
	for i := len(extra) - 1; i >= 0; i-- {
		chain = extra[i](chain)
	}
	gate := IdentityGate(f.codec, f.users, f.blacklist)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	require.NoError(t, gate(chain)(c))
	return rec, seen
}

func TestGateAllowsAnonymousThrough(t *testing.T) {
	f := newGateFixture()
	rec, seen := f.run(t, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)
}

func TestGateResolvesIdentityFromCookie(t *testing.T) {
	f := newGateFixture()
	tok, err := f.codec.IssueAccess(10, "agent@example.com")
	require.NoError(t, err)

	rec, seen := f.run(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tok.Token})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, uint64(10), seen.UserID)
	assert.Equal(t, auth.RoleAgent, seen.Role)
	assert.Equal(t, tok.JTI, seen.JTI)
}

func TestGateFallsBackToBearerHeader(t *testing.T) {
	f := newGateFixture()
	tok, err := f.codec.IssueAccess(10, "agent@example.com")
	require.NoError(t, err)

	rec, seen := f.run(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok.Token)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, uint64(10), seen.UserID)
}

func TestGateTreatsBadTokenAsAnonymous(t *testing.T) {
	f := newGateFixture()
	rec, seen := f.run(t, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not.a.token")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)
}

func TestGateIgnoresRefreshTokensAsAccess(t *testing.T) {
	f := newGateFixture()
	tok, err := f.codec.IssueRefresh(10, "agent@example.com", false)
	require.NoError(t, err)

	rec, seen := f.run(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tok.Token})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, seen)
}

func TestGateRejectsBlacklistedToken(t *testing.T) {
	f := newGateFixture()
	tok, err := f.codec.IssueAccess(10, "agent@example.com")
	require.NoError(t, err)
	require.NoError(t, f.blacklist.Blacklist(context.Background(), tok.JTI))

	rec, seen := f.run(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tok.Token})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
	assert.Contains(t, rec.Body.String(), "AUTHENTICATION_FAILED")
}

func TestRequireRolesWithoutIdentity(t *testing.T) {
	f := newGateFixture()
	rec, _ := f.run(t, nil, RequireRoles(auth.RoleSuperAdmin))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "AUTHENTICATION_FAILED")
}

func TestRequireRolesRejectsWrongRole(t *testing.T) {
	f := newGateFixture()
	tok, err := f.codec.IssueAccess(10, "agent@example.com")
	require.NoError(t, err)

	rec, _ := f.run(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tok.Token})
	}, RequireRoles(auth.RoleSuperAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_PERMISSION")
}

func TestRequireRolesAllowsMemberOfSet(t *testing.T) {
	f := newGateFixture()
	tok, err := f.codec.IssueAccess(10, "agent@example.com")
	require.NoError(t, err)

	rec, seen := f.run(t, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: tok.Token})
	}, RequireRoles(auth.RoleDistributor, auth.RoleAgent))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, seen)
}

func TestRequireRolesEmptySetAllowsAll(t *testing.T) {
	f := newGateFixture()
	rec, _ := f.run(t, nil, RequireRoles())
	assert.Equal(t, http.StatusOK, rec.Code)
}
