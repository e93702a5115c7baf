package repository

import (
	"context"
	"database/sql"
	"strings"

	"membership-platform/internal/auth"
)

// maxLiveSessions caps how many refresh sessions a user may hold at once.
// The sixth login evicts the oldest row.
const maxLiveSessions = 5

// SessionRepo persists refresh sessions (one row per issued refresh token,
// 'token_hash' column only — the raw token is never stored).
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Record inserts a session row for the user and enforces the live-session
// bound.  The re-read of the user's rows runs under FOR UPDATE inside the
// same transaction: without the lock, two concurrent logins for one user
// could each see a count under the cap before either insert commits, letting
// the bound slip.  Calls for different users do not contend.
func (r *SessionRepo) Record(ctx context.Context, userID uint64, rawRefresh, ip, userAgent string) error {
	if rawRefresh == "" {
		return auth.ErrRefreshTokenRequired
	}
	tokenHash := auth.HashRefresh(rawRefresh)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	var ipVal, uaVal any
	if ip != "" {
		ipVal = ip
	}
	if userAgent != "" {
		uaVal = userAgent
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO refresh_sessions (user_id, token_hash, ip, user_agent) VALUES (?,?,?,?)",
		userID, tokenHash, ipVal, uaVal); err != nil {
		return err
	}

	// Newest-first under a write lock; rows past the cap get evicted.
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM refresh_sessions WHERE user_id = ? ORDER BY created_at DESC, id DESC FOR UPDATE`,
		userID)
	if err != nil {
		return err
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			err = scanErr
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	excess := excessSessionIDs(ids, maxLiveSessions)
	if len(excess) == 0 {
		return nil
	}
	q, args := deleteByIDs(excess)
	_, err = tx.ExecContext(ctx, q, args...)
	return err
}

// excessSessionIDs returns the ids past the first keep entries of a
// newest-first list, i.e. the oldest rows to evict.
func excessSessionIDs(newestFirst []uint64, keep int) []uint64 {
	if len(newestFirst) <= keep {
		return nil
	}
	return newestFirst[keep:]
}

func deleteByIDs(ids []uint64) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return "DELETE FROM refresh_sessions WHERE id IN (" + strings.Join(placeholders, ",") + ")", args
}

// Remove deletes the session matching owner + raw token.  Used at logout;
// a no-op when nothing matches.
func (r *SessionRepo) Remove(ctx context.Context, userID uint64, rawRefresh string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_sessions WHERE user_id=? AND token_hash=?",
		userID, auth.HashRefresh(rawRefresh))
	return err
}

// ListByUser returns all live sessions for a user, newest first.  No lock:
// refresh reads tolerate racing an eviction (the worst case only affects a
// later refresh attempt).
func (r *SessionRepo) ListByUser(ctx context.Context, userID uint64) ([]auth.Session, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, token_hash, ip, user_agent, created_at
		 FROM refresh_sessions WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []auth.Session
	for rows.Next() {
		var (
			s  auth.Session
			ip sql.NullString
			ua sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.TokenHash, &ip, &ua, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.IP = ip.String
		s.UserAgent = ua.String
		out = append(out, s)
	}
	return out, rows.Err()
}
