package automation

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresStore backs the trigger queue.
//
// Schema:
//
//	CREATE TABLE automation_triggers (
//	    id         UUID PRIMARY KEY,
//	    lead_id    TEXT NOT NULL,
//	    agent_id   TEXT NOT NULL DEFAULT '',
//	    type       TEXT NOT NULL,
//	    priority   TEXT NOT NULL,
//	    reason     TEXT NOT NULL DEFAULT '',
//	    status     TEXT NOT NULL,
//	    due_at     TIMESTAMPTZ NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX automation_triggers_pending
//	    ON automation_triggers (agent_id) WHERE status = 'pending';

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	const q = `
		INSERT INTO automation_triggers
			(id, lead_id, agent_id, type, priority, reason, status, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.LeadID, rec.AgentID, string(rec.Type), string(rec.Priority),
		rec.Reason, string(rec.Status), rec.DueAt, rec.CreatedAt)
	return err
}

func (s *PostgresStore) Claim(ctx context.Context, id string, at time.Time) (Record, error) {
	const q = `
		UPDATE automation_triggers
		SET status = 'claimed'
		WHERE id = $1 AND status = 'pending'
		RETURNING id, lead_id, agent_id, type, priority, reason, status, due_at, created_at`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (s *PostgresStore) ListPending(ctx context.Context, leadID string) ([]Record, error) {
	const q = `
		SELECT id, lead_id, agent_id, type, priority, reason, status, due_at, created_at
		FROM automation_triggers
		WHERE lead_id = $1 AND status = 'pending'
		ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, q, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PendingForAgent(ctx context.Context, agentID string) (int, error) {
	const q = `
		SELECT COUNT(*) FROM automation_triggers
		WHERE agent_id = $1 AND status = 'pending'`
	var n int
	err := s.db.QueryRowContext(ctx, q, agentID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var typ, prio, status string
	err := row.Scan(&rec.ID, &rec.LeadID, &rec.AgentID, &typ, &prio,
		&rec.Reason, &status, &rec.DueAt, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	rec.Type = TriggerType(typ)
	rec.Priority = TriggerPriority(prio)
	rec.Status = RecordStatus(status)
	return rec, nil
}
