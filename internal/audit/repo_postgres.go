package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists audit entries in an INSERT-only table.
//
// Schema:
//
//	CREATE TABLE audit_entries (
//	    id          UUID PRIMARY KEY,
//	    action      TEXT NOT NULL,
//	    actor       TEXT NOT NULL DEFAULT '',
//	    target_type TEXT NOT NULL,
//	    target_id   TEXT NOT NULL,
//	    ip_address  TEXT NOT NULL DEFAULT '',
//	    metadata    TEXT NOT NULL DEFAULT '',
//	    created_at  TIMESTAMPTZ NOT NULL
//	);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
		INSERT INTO audit_entries (id, action, actor, target_type, target_id, ip_address, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Action), e.Actor, e.TargetType, e.TargetID, e.IPAddress, e.Metadata, e.CreatedAt)
	return err
}
