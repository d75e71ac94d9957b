package extensions

import (
	"context"
	"database/sql"
	"errors"
)

// NOTE: This repository assumes the following tables exist:
// - extensions (account_id, number, assigned_user_id NULLABLE)
// - extension_registrations (account_id, number, registered, updated_at)
//   maintained out-of-band from switch registration events.

var ErrNotFound = errors.New("extensions: not found")

// Repository is the lookup contract the directory service needs.
// The core never mutates extension rows.
type Repository interface {
	Find(ctx context.Context, accountID int64, number string) (Endpoint, error)
}

// PostgresRepo reads the extension directory from Postgres.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Find(ctx context.Context, accountID int64, number string) (Endpoint, error) {
	const q = `
SELECT e.account_id, e.number, COALESCE(e.assigned_user_id, ''), COALESCE(reg.registered, FALSE)
FROM extensions e
LEFT JOIN extension_registrations reg
  ON reg.account_id = e.account_id AND reg.number = e.number
WHERE e.account_id = $1 AND e.number = $2
`
	var ep Endpoint
	if err := r.db.QueryRowContext(ctx, q, accountID, number).Scan(
		&ep.AccountID,
		&ep.Number,
		&ep.AssignedUserID,
		&ep.Registered,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Endpoint{}, ErrNotFound
		}
		return Endpoint{}, err
	}
	return ep, nil
}
