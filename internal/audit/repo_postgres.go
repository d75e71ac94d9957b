package audit

import (
	"context"
	"database/sql"
)

// NOTE: This repository assumes an INSERT-only audit_events table:
// (id, account_id, type, actor_user_id, actor_role, ip_address,
//  command, source_ext, destination_ext, message, metadata, created_at).
// Optional: trigger to prevent UPDATE/DELETE; partition by time for retention.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, account_id, type, actor_user_id, actor_role, ip_address,
  command, source_ext, destination_ext, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.AccountID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.Command,
		e.SourceExt,
		e.DestinationExt,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
