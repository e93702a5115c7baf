package auth

import (
	"crypto/sha256" // SHA-256 hashing for refresh tokens at rest
	"encoding/hex"  // hex encoding for stored digests
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // jti generation
)

// Token lifetime policy.  Access tokens are short-lived in production and
// deliberately long in development so local sessions survive a work day.
// Refresh tokens stretch to a year when the user asked to stay logged in.
const (
	accessTTLProd  = 15 * time.Minute
	accessTTLDev   = 7 * 24 * time.Hour
	refreshTTL     = 7 * 24 * time.Hour
	refreshTTLKeep = 365 * 24 * time.Hour
)

// refreshKind tags refresh tokens via the "type" claim.  Access tokens carry
// no type claim.
const refreshKind = "refresh"

// Claims is the decoded payload of a signed token.
type Claims struct {
	UserID uint64
	Email  string
	JTI    string
	Kind   string // "" for access tokens, "refresh" for refresh tokens
	Exp    time.Time
}

// IssuedToken is a freshly signed token together with the metadata callers
// need: the jti for later revocation and the expiry for cookie max-ages.
type IssuedToken struct {
	Token string
	JTI   string
	Exp   time.Time
}

// TokenCodec signs and verifies HS256 JWTs.  Both access and refresh tokens
// are produced by the same codec with the same secret; they differ only in
// lifetime and the "type" claim.
type TokenCodec struct {
	secret string
	env    string // APP_ENV; "prod" switches to the short access TTL
}

func NewTokenCodec(secret, env string) *TokenCodec {
	return &TokenCodec{secret: secret, env: env}
}

// AccessTTL returns the access-token lifetime for the configured environment.
func (c *TokenCodec) AccessTTL() time.Duration {
	if c.env == "prod" {
		return accessTTLProd
	}
	return accessTTLDev
}

// RefreshTTL returns the refresh-token lifetime, stretched when the user
// requested keep-login at sign-in.
func (c *TokenCodec) RefreshTTL(keepLogin bool) time.Duration {
	if keepLogin {
		return refreshTTLKeep
	}
	return refreshTTL
}

// IssueAccess signs a new access token for the user.  Every call embeds a
// fresh jti; tokens are never renewed in place.
func (c *TokenCodec) IssueAccess(userID uint64, email string) (IssuedToken, error) {
	return c.sign(userID, email, "", c.AccessTTL())
}

// IssueRefresh signs a new refresh token.  The raw value goes back to the
// client; only its digest (HashRefresh) may be persisted.
func (c *TokenCodec) IssueRefresh(userID uint64, email string, keepLogin bool) (IssuedToken, error) {
	return c.sign(userID, email, refreshKind, c.RefreshTTL(keepLogin))
}

func (c *TokenCodec) sign(userID uint64, email, kind string, ttl time.Duration) (IssuedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"jti":   jti,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	if kind != "" {
		claims["type"] = kind
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(c.secret))
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, JTI: jti, Exp: exp}, nil
}

var errUnexpectedSigning = errors.New("unexpected signing method")

// Verify parses a token, checks signature and expiry and returns its claims.
// It does not consult the blacklist; that decision belongs to the identity
// gate.
func (c *TokenCodec) Verify(raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Type assert the signing method to HMAC; reject others.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigning
		}
		return []byte(c.secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = jwt.ErrTokenUnverifiable
		}
		return Claims{}, err
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	return claimsFromMap(mc)
}

// VerifyRefresh is Verify plus the requirement that the token carries the
// refresh type claim, so an access token can never stand in for a refresh
// token.
func (c *TokenCodec) VerifyRefresh(raw string) (Claims, error) {
	cl, err := c.Verify(raw)
	if err != nil {
		return Claims{}, err
	}
	if cl.Kind != refreshKind {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	return cl, nil
}

func claimsFromMap(mc jwt.MapClaims) (Claims, error) {
	var cl Claims
	// JWT numeric values decode as float64.
	switch sub := mc["sub"].(type) {
	case float64:
		cl.UserID = uint64(sub)
	default:
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	if v, ok := mc["email"].(string); ok {
		cl.Email = v
	}
	jti, ok := mc["jti"].(string)
	if !ok || jti == "" {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	cl.JTI = jti
	if v, ok := mc["type"].(string); ok {
		cl.Kind = v
	}
	if v, ok := mc["exp"].(float64); ok {
		cl.Exp = time.Unix(int64(v), 0).UTC()
	}
	return cl, nil
}

// HashRefresh returns the SHA-256 hex digest of a raw refresh token.  Only
// the digest is persisted, so a leaked sessions table cannot be replayed
// without the signing secret.
func HashRefresh(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
