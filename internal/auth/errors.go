// Package auth implements the authentication and session-lifecycle core:
// credential verification, access/refresh token issuance, refresh matching
// against the bounded session window, jti blacklisting and hierarchical
// registration.  Transport concerns (routing, cookies, status codes) live in
// the handler and middleware packages.
package auth

// Error is an expected domain failure.  It carries a stable machine-readable
// code that handlers translate into HTTP responses.  Unexpected faults
// (broken DB connection, marshalling bugs) are returned as plain errors and
// surface as 500s.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses never reveal which factor failed.
	ErrInvalidCredentials     = &Error{Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	ErrInvalidRefreshToken    = &Error{Code: "INVALID_REFRESH_TOKEN", Message: "refresh token is not valid"}
	ErrUserNotFound           = &Error{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrMissingRefreshToken    = &Error{Code: "MISSING_REFRESH_TOKEN", Message: "no refresh session exists"}
	ErrAuthenticationFailed   = &Error{Code: "AUTHENTICATION_FAILED", Message: "authentication failed"}
	ErrNoPermission           = &Error{Code: "NO_PERMISSION", Message: "no permission"}
	ErrEmailAlreadyRegistered = &Error{Code: "EMAIL_ALREADY_REGISTERED", Message: "email already registered"}
	ErrRefreshTokenRequired   = &Error{Code: "REFRESH_TOKEN_REQUIRED", Message: "refresh token required"}
	ErrCannotDeleteSuperAdmin = &Error{Code: "CANNOT_DELETE_SUPER_ADMIN", Message: "super admin accounts cannot be deleted"}
)
