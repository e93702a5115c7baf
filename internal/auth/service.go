package auth

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Service contains all business logic for authentication and the member
// lifecycle.  Every dependency is injected; nothing reaches for globals.
type Service struct {
	users      UserStore
	sessions   SessionStore
	companies  CompanyStore
	codec      *TokenCodec
	blacklist  *BlacklistStore
	limiter    *LoginLimiter
	bcryptCost int
}

func NewService(
	users UserStore,
	sessions SessionStore,
	companies CompanyStore,
	codec *TokenCodec,
	blacklist *BlacklistStore,
	limiter *LoginLimiter,
	bcryptCost int,
) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		companies:  companies,
		codec:      codec,
		blacklist:  blacklist,
		limiter:    limiter,
		bcryptCost: bcryptCost,
	}
}

type LoginInput struct {
	Email     string
	Password  string
	KeepLogin bool
	IP        string
	UserAgent string
}

type LoginResult struct {
	User    User
	Access  IssuedToken
	Refresh IssuedToken
}

// Authenticate validates email+password against the stored hash.  Unknown
// email and wrong password both come back as ErrInvalidCredentials so the
// response cannot be used to enumerate accounts.  No side effects beyond the
// lookup; login throttling happens in Login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login verifies credentials, issues a fresh access/refresh pair and records
// a session row carrying the caller's IP and user agent.  Five failed
// attempts inside the window lock the email out; the refusal is reported as
// invalid credentials so the lockout itself leaks nothing.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	email := strings.TrimSpace(in.Email)

	blocked, err := s.limiter.Blocked(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if blocked {
		return LoginResult{}, ErrInvalidCredentials
	}

	u, err := s.Authenticate(ctx, email, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			_ = s.limiter.RecordFailure(ctx, email)
		}
		return LoginResult{}, err
	}
	_ = s.limiter.Reset(ctx, email)

	access, err := s.codec.IssueAccess(u.ID, u.Email)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := s.codec.IssueRefresh(u.ID, u.Email, in.KeepLogin)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.sessions.Record(ctx, u.ID, refresh.Token, in.IP, in.UserAgent); err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: u, Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token.  The raw
// token must hash-match any of the owner's live session rows, not just the
// newest one, so concurrent devices keep working.  Neither the refresh token
// nor its session row is rotated here; only logout or natural expiry removes
// a session.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (IssuedToken, error) {
	cl, err := s.codec.VerifyRefresh(rawRefresh)
	if err != nil {
		return IssuedToken{}, ErrInvalidRefreshToken
	}

	u, err := s.users.GetByID(ctx, cl.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return IssuedToken{}, ErrUserNotFound
		}
		return IssuedToken{}, err
	}

	sessions, err := s.sessions.ListByUser(ctx, u.ID)
	if err != nil {
		return IssuedToken{}, err
	}
	if len(sessions) == 0 {
		return IssuedToken{}, ErrMissingRefreshToken
	}

	digest := []byte(HashRefresh(rawRefresh))
	matched := false
	for _, sess := range sessions {
		if subtle.ConstantTimeCompare(digest, []byte(sess.TokenHash)) == 1 {
			matched = true
		}
	}
	if !matched {
		return IssuedToken{}, ErrInvalidRefreshToken
	}

	return s.codec.IssueAccess(u.ID, u.Email)
}

// Logout blacklists the presented access token's jti and removes the session
// row matching the refresh token.  Either part may be absent; removal is
// idempotent.
func (s *Service) Logout(ctx context.Context, userID uint64, jti, rawRefresh string) error {
	if jti != "" {
		if err := s.blacklist.Blacklist(ctx, jti); err != nil {
			return err
		}
	}
	if rawRefresh != "" {
		return s.sessions.Remove(ctx, userID, rawRefresh)
	}
	return nil
}

type RegisterInput struct {
	Email       string
	Password    string
	Memo        string
	CompanyName string // used only when the new account starts a company scope
}

// Register creates an account on behalf of an acting user.  The acting role
// alone decides the new account's role and company scope via the hierarchy
// table; a GENERAL actor has no downstream role and is refused.  Email
// uniqueness is checked up front and again inside the creation transaction
// so two concurrent registrations cannot both commit.
func (s *Service) Register(ctx context.Context, actingUserID uint64, in RegisterInput) (User, error) {
	actor, err := s.users.GetByID(ctx, actingUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	assignment, ok := DeriveRegistration(actor.Role)
	if !ok {
		return User{}, ErrNoPermission
	}

	email := strings.TrimSpace(in.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, sql.ErrNoRows) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return User{}, err
	}

	var companyID *uint64
	if assignment.InheritCompany {
		companyID = actor.CompanyID
	} else if in.CompanyName != "" {
		// A new distributor opens a fresh top-level company scope.
		id, err := s.companies.Create(ctx, in.CompanyName)
		if err != nil {
			return User{}, err
		}
		companyID = &id
	}

	u := User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         assignment.Role,
		CompanyID:    companyID,
		Memo:         in.Memo,
	}
	id, err := s.users.Create(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id
	u.PasswordHash = ""
	return u, nil
}

// GetUser resolves a user by id for profile reads.
func (s *Service) GetUser(ctx context.Context, id uint64) (User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

// UpdateUser lets a privileged caller change another member's password or
// memo.  Both the acting and the target user must exist.
func (s *Service) UpdateUser(ctx context.Context, actingUserID, targetID uint64, password, memo *string) error {
	if _, err := s.GetUser(ctx, actingUserID); err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return err
	}
	var hash *string
	if password != nil {
		b, err := bcrypt.GenerateFromPassword([]byte(*password), s.bcryptCost)
		if err != nil {
			return err
		}
		h := string(b)
		hash = &h
	}
	return s.users.UpdateProfile(ctx, targetID, hash, memo)
}

// DeleteUser removes a member.  Super-admin accounts are never deleted.
func (s *Service) DeleteUser(ctx context.Context, actingUserID, targetID uint64) error {
	if _, err := s.GetUser(ctx, actingUserID); err != nil {
		return err
	}
	target, err := s.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Role == RoleSuperAdmin {
		return ErrCannotDeleteSuperAdmin
	}
	return s.users.Delete(ctx, targetID)
}
