package repository

import (
	"context"
	"database/sql"
	"time"
)

// Company mirrors the 'companies' table.  A company scopes the distributor →
// agent → general chain that hangs under it.
type Company struct {
	ID        uint64
	Name      string
	CreatedAt time.Time
}

type CompanyRepo struct{ DB *sql.DB }

func NewCompanyRepo(db *sql.DB) *CompanyRepo { return &CompanyRepo{DB: db} }

// Create inserts a company and returns its ID.
func (r *CompanyRepo) Create(ctx context.Context, name string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO companies (name) VALUES (?)", name)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a company by id.
func (r *CompanyRepo) GetByID(ctx context.Context, id uint64) (Company, error) {
	var c Company
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM companies WHERE id=? LIMIT 1",
		id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}
