package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PostgresRepo reads the agents table. Skills are a JSONB map of skill name
// to level.
//
// Schema:
//
//	CREATE TABLE agents (
//	    id               TEXT PRIMARY KEY,
//	    name             TEXT NOT NULL,
//	    active           BOOLEAN NOT NULL DEFAULT TRUE,
//	    region           TEXT NOT NULL DEFAULT '',
//	    skills           JSONB NOT NULL DEFAULT '{}',
//	    hired_at         TIMESTAMPTZ NOT NULL,
//	    last_assigned_at TIMESTAMPTZ
//	);

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const agentColumns = `id, name, active, region, skills, hired_at, last_assigned_at`

func (r *PostgresRepo) Get(ctx context.Context, id string) (Agent, error) {
	q := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	a, err := scanAgent(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return a, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Agent, error) {
	q := `SELECT ` + agentColumns + ` FROM agents ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Put(ctx context.Context, a Agent) error {
	skills, err := json.Marshal(a.Skills)
	if err != nil {
		return err
	}
	var lastAssigned any
	if !a.LastAssignedAt.IsZero() {
		lastAssigned = a.LastAssignedAt
	}
	const q = `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, active = EXCLUDED.active,
			region = EXCLUDED.region, skills = EXCLUDED.skills,
			hired_at = EXCLUDED.hired_at,
			last_assigned_at = EXCLUDED.last_assigned_at`
	_, err = r.db.ExecContext(ctx, q, a.ID, a.Name, a.Active, a.Region, skills, a.HiredAt, lastAssigned)
	return err
}

func (r *PostgresRepo) MarkAssigned(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE agents SET last_assigned_at = $2 WHERE id = $1`
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

func scanAgent(row rowScanner) (Agent, error) {
	var a Agent
	var skills []byte
	var lastAssigned sql.NullTime
	err := row.Scan(&a.ID, &a.Name, &a.Active, &a.Region, &skills, &a.HiredAt, &lastAssigned)
	if err != nil {
		return Agent{}, err
	}
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &a.Skills); err != nil {
			return Agent{}, err
		}
	}
	if lastAssigned.Valid {
		a.LastAssignedAt = lastAssigned.Time
	}
	return a, nil
}
