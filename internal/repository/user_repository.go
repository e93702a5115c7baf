package repository

import (
	"context"
	"database/sql"
	"strings"

	"membership-platform/internal/auth"
)

// UserRepo provides data access to the 'users' table.  Role strings are
// validated through auth.ParseRole on the way out so a corrupted row cannot
// grant an unknown role.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password,member_type,company_id,memo,created_at,updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (auth.User, error) {
	var (
		u       auth.User
		role    string
		company sql.NullInt64
		memo    sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &company, &memo, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return auth.User{}, err
	}
	if r, ok := auth.ParseRole(role); ok {
		u.Role = r
	}
	if company.Valid {
		id := uint64(company.Int64)
		u.CompanyID = &id
	}
	if memo.Valid {
		u.Memo = memo.String
	}
	return u, nil
}

// GetByEmail fetches a user by exact email match.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (auth.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (auth.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// Create inserts the user and returns its ID.  The uniqueness re-check and
// the insert run in one transaction so two concurrent registrations with the
// same email cannot both commit; the pre-check in the service layer only
// narrows the window.
func (r *UserRepo) Create(ctx context.Context, u auth.User) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	// Ensure rollback or commit at the end
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=?", u.Email).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists > 0 {
		err = auth.ErrEmailAlreadyRegistered
		return 0, err
	}

	var company any
	if u.CompanyID != nil {
		company = *u.CompanyID
	}
	var memo any
	if u.Memo != "" {
		memo = u.Memo
	}
	res, execErr := tx.ExecContext(ctx,
		"INSERT INTO users (email, password, member_type, company_id, memo) VALUES (?,?,?,?,?)",
		u.Email, u.PasswordHash, string(u.Role), company, memo)
	if execErr != nil {
		// 1062 = duplicate key; a racing insert beat the re-check.
		if strings.Contains(strings.ToLower(execErr.Error()), "1062") {
			err = auth.ErrEmailAlreadyRegistered
		} else {
			err = execErr
		}
		return 0, err
	}
	id, lastErr := res.LastInsertId()
	if lastErr != nil {
		err = lastErr
		return 0, err
	}
	return uint64(id), nil
}

// UpdateProfile changes the password hash and/or memo of a user.  A nil
// pointer leaves the column untouched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, passwordHash, memo *string) error {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if passwordHash != nil {
		sets = append(sets, "password=?")
		args = append(args, *passwordHash)
	}
	if memo != nil {
		sets = append(sets, "memo=?")
		args = append(args, *memo)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// Delete removes a user row.  Refresh sessions cascade via FK.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	return err
}
