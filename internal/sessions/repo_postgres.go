package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"telecall-platform/pkg/utils"
)

// PostgresRepo persists sessions with hand-written SQL over database/sql.
//
// Concurrency: WithLeadLock opens a transaction and takes
// pg_advisory_xact_lock on the lead id, so the check-and-create in Initiate
// is serialized per lead across all processes, not just this one. Queries
// issued inside the callback ride the same transaction via the context.
//
// Schema:
//
//	CREATE TABLE call_sessions (
//	    id               UUID PRIMARY KEY,
//	    lead_id          TEXT NOT NULL,
//	    agent_id         TEXT NOT NULL DEFAULT '',
//	    call_type        TEXT NOT NULL,
//	    status           TEXT NOT NULL,
//	    external_call_id TEXT UNIQUE,
//	    duration         INT NOT NULL DEFAULT 0,
//	    disposition      TEXT NOT NULL DEFAULT '',
//	    sentiment        TEXT NOT NULL DEFAULT '',
//	    recording_url    TEXT NOT NULL DEFAULT '',
//	    initiated_at     TIMESTAMPTZ NOT NULL,
//	    answered_at      TIMESTAMPTZ,
//	    completed_at     TIMESTAMPTZ,
//	    metadata         JSONB NOT NULL DEFAULT '{}',
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX call_sessions_lead_idx ON call_sessions (lead_id, created_at);
//	CREATE INDEX call_sessions_agent_idx ON call_sessions (agent_id, created_at);
//	CREATE UNIQUE INDEX call_sessions_one_active_per_lead
//	    ON call_sessions (lead_id)
//	    WHERE status IN ('initiated','queued','ringing','answered');
//
// The partial unique index is a backstop; the advisory lock is the primary
// serialization mechanism.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

type txKey struct{}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRepo) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

func (r *PostgresRepo) WithLeadLock(ctx context.Context, leadID string, fn func(ctx context.Context) error) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, leadID); err != nil {
			return err
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

const sessionColumns = `
	id, lead_id, agent_id, call_type, status,
	COALESCE(external_call_id, ''), duration, disposition, sentiment, recording_url,
	initiated_at, answered_at, completed_at, metadata, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, s CallSession) error {
	meta, err := json.Marshal(s.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO call_sessions
			(id, lead_id, agent_id, call_type, status, external_call_id,
			 duration, disposition, sentiment, recording_url,
			 initiated_at, answered_at, completed_at, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = r.q(ctx).ExecContext(ctx, q,
		s.ID, s.LeadID, s.AgentID, string(s.CallType), string(s.Status), s.ExternalCallID,
		s.DurationSeconds, s.Disposition, s.Sentiment, s.RecordingURL,
		s.InitiatedAt, s.AnsweredAt, s.CompletedAt, meta, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, s CallSession) error {
	meta, err := json.Marshal(s.Metadata)
	if err != nil {
		return err
	}
	const q = `
		UPDATE call_sessions SET
			agent_id = $2, status = $3,
			external_call_id = COALESCE(external_call_id, NULLIF($4, '')),
			duration = $5, disposition = $6, sentiment = $7, recording_url = $8,
			answered_at = $9, completed_at = $10, metadata = $11, updated_at = $12
		WHERE id = $1`
	res, err := r.q(ctx).ExecContext(ctx, q,
		s.ID, s.AgentID, string(s.Status), s.ExternalCallID,
		s.DurationSeconds, s.Disposition, s.Sentiment, s.RecordingURL,
		s.AnsweredAt, s.CompletedAt, meta, s.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (CallSession, error) {
	row := r.q(ctx).QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM call_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *PostgresRepo) GetByExternalID(ctx context.Context, externalID string) (CallSession, error) {
	row := r.q(ctx).QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM call_sessions WHERE external_call_id = $1`, externalID)
	return scanSession(row)
}

func (r *PostgresRepo) ActiveForLead(ctx context.Context, leadID string) (*CallSession, error) {
	row := r.q(ctx).QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM call_sessions
		WHERE lead_id = $1 AND status IN ('initiated','queued','ringing','answered')
		ORDER BY created_at DESC
		LIMIT 1`, leadID)
	s, err := scanSession(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepo) ListByLeadSince(ctx context.Context, leadID string, since time.Time) ([]CallSession, error) {
	return r.list(ctx, `
		SELECT `+sessionColumns+`
		FROM call_sessions
		WHERE lead_id = $1 AND created_at >= $2
		ORDER BY created_at ASC`, leadID, since)
}

func (r *PostgresRepo) ListByAgentSince(ctx context.Context, agentID string, since time.Time) ([]CallSession, error) {
	return r.list(ctx, `
		SELECT `+sessionColumns+`
		FROM call_sessions
		WHERE agent_id = $1 AND created_at >= $2
		ORDER BY created_at ASC`, agentID, since)
}

func (r *PostgresRepo) list(ctx context.Context, query string, args ...any) ([]CallSession, error) {
	rows, err := r.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (CallSession, error) {
	var s CallSession
	var callType, status string
	var answeredAt, completedAt sql.NullTime
	var meta []byte

	err := row.Scan(
		&s.ID, &s.LeadID, &s.AgentID, &callType, &status,
		&s.ExternalCallID, &s.DurationSeconds, &s.Disposition, &s.Sentiment, &s.RecordingURL,
		&s.InitiatedAt, &answeredAt, &completedAt, &meta, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CallSession{}, ErrNotFound
	}
	if err != nil {
		return CallSession{}, err
	}

	s.CallType = CallType(callType)
	s.Status = Status(status)
	if answeredAt.Valid {
		t := answeredAt.Time
		s.AnsweredAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &s.Metadata); err != nil {
			return CallSession{}, err
		}
	}
	return s, nil
}
