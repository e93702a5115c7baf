package auth

import (
	"context"
	"time"
)

// User mirrors the 'users' table.  Role and CompanyID are assigned by the
// registration hierarchy, never taken from the caller.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         Role
	CompanyID    *uint64
	Memo         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session mirrors one row of 'refresh_sessions': a single refresh-token
// issuance.  TokenHash is the SHA-256 digest of the raw token, never the raw
// value itself.
type Session struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// UserStore — only the persistence methods the auth core uses.  Lookups
// return sql.ErrNoRows when no row matches; the service folds that into the
// domain taxonomy.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id uint64) (User, error)
	// Create inserts the user inside a transaction that re-checks email
	// uniqueness; it returns ErrEmailAlreadyRegistered on a conflict.
	Create(ctx context.Context, u User) (uint64, error)
	// UpdateProfile changes password hash and/or memo; nil leaves a field
	// untouched.
	UpdateProfile(ctx context.Context, id uint64, passwordHash, memo *string) error
	Delete(ctx context.Context, id uint64) error
}

// SessionStore owns the refresh-session rows and the live-session bound.
type SessionStore interface {
	// Record hashes rawRefresh and inserts a row, then evicts the oldest
	// rows beyond the per-user cap inside the same transaction.
	Record(ctx context.Context, userID uint64, rawRefresh, ip, userAgent string) error
	// Remove deletes the row matching owner + raw token; idempotent when no
	// row matches.
	Remove(ctx context.Context, userID uint64, rawRefresh string) error
	ListByUser(ctx context.Context, userID uint64) ([]Session, error)
}

// CompanyStore creates the company scope for newly registered distributors.
type CompanyStore interface {
	Create(ctx context.Context, name string) (uint64, error)
}
