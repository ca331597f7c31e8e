package leads

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo reads and updates the telecalling slice of the leads table.
//
// Schema (owned by the CRM; columns below are the ones this subsystem
// touches):
//
//	CREATE TABLE leads (
//	    id               TEXT PRIMARY KEY,
//	    phone            TEXT NOT NULL,
//	    name             TEXT NOT NULL DEFAULT '',
//	    priority         TEXT NOT NULL DEFAULT 'medium',
//	    status           TEXT NOT NULL DEFAULT 'new',
//	    city             TEXT NOT NULL DEFAULT '',
//	    source           TEXT NOT NULL DEFAULT '',
//	    consent_status   TEXT NOT NULL DEFAULT 'unknown',
//	    call_attempts    INT NOT NULL DEFAULT 0,
//	    last_interaction TIMESTAMPTZ,
//	    next_followup    TIMESTAMPTZ,
//	    assigned_agent   TEXT NOT NULL DEFAULT '',
//	    created_at       TIMESTAMPTZ NOT NULL,
//	    updated_at       TIMESTAMPTZ NOT NULL
//	);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const leadColumns = `id, phone, name, priority, status, city, source, consent_status,
	call_attempts, last_interaction, next_followup, assigned_agent, created_at, updated_at`

func (r *PostgresRepo) Get(ctx context.Context, id string) (Lead, error) {
	q := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	l, err := scanLead(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (r *PostgresRepo) Put(ctx context.Context, l Lead) error {
	const q = `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			phone = EXCLUDED.phone, name = EXCLUDED.name,
			priority = EXCLUDED.priority, status = EXCLUDED.status,
			city = EXCLUDED.city, source = EXCLUDED.source,
			consent_status = EXCLUDED.consent_status,
			call_attempts = EXCLUDED.call_attempts,
			last_interaction = EXCLUDED.last_interaction,
			next_followup = EXCLUDED.next_followup,
			assigned_agent = EXCLUDED.assigned_agent,
			updated_at = EXCLUDED.updated_at`
	var lastInteraction any
	if !l.LastInteraction.IsZero() {
		lastInteraction = l.LastInteraction
	}
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.Phone, l.Name, string(l.Priority), string(l.Status), l.City, l.Source,
		string(l.Consent), l.CallAttempts, lastInteraction, l.NextFollowup,
		l.AssignedAgentID, l.CreatedAt, l.UpdatedAt)
	return err
}

func (r *PostgresRepo) RecordAttempt(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE leads
		SET call_attempts = call_attempts + 1, last_interaction = $2, updated_at = $2
		WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var l Lead
	var priority, status, consent string
	var lastInteraction, nextFollowup sql.NullTime
	err := row.Scan(&l.ID, &l.Phone, &l.Name, &priority, &status, &l.City, &l.Source,
		&consent, &l.CallAttempts, &lastInteraction, &nextFollowup,
		&l.AssignedAgentID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Lead{}, err
	}
	l.Priority = Priority(priority)
	l.Status = Status(status)
	l.Consent = Consent(consent)
	if lastInteraction.Valid {
		l.LastInteraction = lastInteraction.Time
	}
	if nextFollowup.Valid {
		t := nextFollowup.Time
		l.NextFollowup = &t
	}
	return l, nil
}
