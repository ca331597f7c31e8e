package webhooks

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresLogRepo persists webhook logs.
//
// Schema:
//
//	CREATE TABLE webhook_logs (
//	    id               UUID PRIMARY KEY,
//	    provider         TEXT NOT NULL,
//	    raw_payload      TEXT NOT NULL,
//	    signature        TEXT NOT NULL DEFAULT '',
//	    external_call_id TEXT NOT NULL DEFAULT '',
//	    event_type       TEXT NOT NULL DEFAULT '',
//	    status           TEXT NOT NULL,
//	    error_detail     TEXT NOT NULL DEFAULT '',
//	    received_at      TIMESTAMPTZ NOT NULL,
//	    processed_at     TIMESTAMPTZ
//	);

type PostgresLogRepo struct {
	db *sql.DB
}

func NewPostgresLogRepo(db *sql.DB) *PostgresLogRepo {
	return &PostgresLogRepo{db: db}
}

func (r *PostgresLogRepo) Append(ctx context.Context, l Log) error {
	const q = `
		INSERT INTO webhook_logs
			(id, provider, raw_payload, signature, external_call_id, event_type, status, error_detail, received_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.Provider, l.RawPayload, l.Signature, l.ExternalCallID, l.EventType,
		string(l.Status), l.ErrorDetail, l.ReceivedAt, l.ProcessedAt)
	return err
}

func (r *PostgresLogRepo) Resolve(ctx context.Context, id string, status ProcessingStatus, errorDetail string, at time.Time) error {
	const q = `
		UPDATE webhook_logs
		SET status = $2, error_detail = $3, processed_at = $4
		WHERE id = $1 AND processed_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, string(status), errorDetail, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrLogNotFound
	}
	return err
}

func (r *PostgresLogRepo) Get(ctx context.Context, id string) (Log, error) {
	const q = `
		SELECT id, provider, raw_payload, signature, external_call_id, event_type, status, error_detail, received_at, processed_at
		FROM webhook_logs WHERE id = $1`
	var l Log
	var status string
	var processedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.Provider, &l.RawPayload, &l.Signature, &l.ExternalCallID, &l.EventType,
		&status, &l.ErrorDetail, &l.ReceivedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Log{}, ErrLogNotFound
	}
	if err != nil {
		return Log{}, err
	}
	l.Status = ProcessingStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		l.ProcessedAt = &t
	}
	return l, nil
}
