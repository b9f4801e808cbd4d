package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	prediction "forsee-cloud/internal/prediction/domain"
	session "forsee-cloud/internal/session/domain"
	"forsee-cloud/internal/storage/sqldb"
)

const runsSchema = `
CREATE TABLE IF NOT EXISTS prediction_runs (
	id           TEXT PRIMARY KEY,
	asset_id     TEXT NOT NULL,
	asset_title  TEXT NOT NULL,
	inputs       TEXT NOT NULL,
	result       TEXT NOT NULL,
	risk_level   TEXT NOT NULL,
	requested_by TEXT NOT NULL,
	created_at   TEXT NOT NULL
)`

const ticketsSchema = `
CREATE TABLE IF NOT EXISTS action_tickets (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES prediction_runs(id),
	asset_id      TEXT NOT NULL,
	action        TEXT NOT NULL,
	risk_level    TEXT NOT NULL,
	note          TEXT NOT NULL,
	dispatched_by TEXT NOT NULL,
	created_at    TEXT NOT NULL
)`

// RunRepository stores prediction runs and action tickets in Postgres or SQLite.
type RunRepository struct {
	db *sqldb.DB
}

// NewRunRepository constructs the repository and ensures its schema.
func NewRunRepository(ctx context.Context, db *sqldb.DB) (*RunRepository, error) {
	if db == nil {
		return nil, errors.New("run repo: nil db")
	}
	if err := db.Migrate(ctx, runsSchema, ticketsSchema); err != nil {
		return nil, fmt.Errorf("run repo: %w", err)
	}
	return &RunRepository{db: db}, nil
}

// SaveRun inserts a run.
func (r *RunRepository) SaveRun(ctx context.Context, run session.PredictionRun) error {
	inputs, err := json.Marshal(run.Inputs)
	if err != nil {
		return fmt.Errorf("run repo: inputs: %w", err)
	}
	result, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("run repo: result: %w", err)
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
INSERT INTO prediction_runs (id, asset_id, asset_title, inputs, result, risk_level, requested_by, created_at)
VALUES (?,?,?,?,?,?,?,?)`),
		run.ID, run.AssetID, run.AssetTitle, string(inputs), string(result), string(run.Result.RiskLevel),
		run.RequestedBy, sqldb.FormatTime(run.CreatedAt))
	if err != nil {
		return fmt.Errorf("run repo: insert: %w", err)
	}
	return nil
}

// GetRun loads a run by id.
func (r *RunRepository) GetRun(ctx context.Context, id string) (session.PredictionRun, error) {
	var (
		run                     session.PredictionRun
		inputs, result, created string
	)
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
SELECT id, asset_id, asset_title, inputs, result, requested_by, created_at
FROM prediction_runs WHERE id = ?`), id).
		Scan(&run.ID, &run.AssetID, &run.AssetTitle, &inputs, &result, &run.RequestedBy, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return session.PredictionRun{}, session.ErrRunNotFound
	}
	if err != nil {
		return session.PredictionRun{}, fmt.Errorf("run repo: get: %w", err)
	}
	if err := json.Unmarshal([]byte(inputs), &run.Inputs); err != nil {
		return session.PredictionRun{}, fmt.Errorf("run repo: inputs: %w", err)
	}
	var res prediction.Result
	if err := json.Unmarshal([]byte(result), &res); err != nil {
		return session.PredictionRun{}, fmt.Errorf("run repo: result: %w", err)
	}
	run.Result = res
	if run.CreatedAt, err = sqldb.ParseTime(created); err != nil {
		return session.PredictionRun{}, fmt.Errorf("run repo: created_at: %w", err)
	}
	return run, nil
}

// SaveTicket inserts a ticket for an existing run.
func (r *RunRepository) SaveTicket(ctx context.Context, ticket session.ActionTicket) error {
	if _, err := r.GetRun(ctx, ticket.RunID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
INSERT INTO action_tickets (id, run_id, asset_id, action, risk_level, note, dispatched_by, created_at)
VALUES (?,?,?,?,?,?,?,?)`),
		ticket.ID, ticket.RunID, ticket.AssetID, ticket.Action, string(ticket.RiskLevel), ticket.Note,
		ticket.DispatchedBy, sqldb.FormatTime(ticket.CreatedAt))
	if err != nil {
		return fmt.Errorf("run repo: insert ticket: %w", err)
	}
	return nil
}

// ListTickets returns tickets for a run in dispatch order.
func (r *RunRepository) ListTickets(ctx context.Context, runID string) ([]session.ActionTicket, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
SELECT id, run_id, asset_id, action, risk_level, note, dispatched_by, created_at
FROM action_tickets WHERE run_id = ? ORDER BY created_at, id`), runID)
	if err != nil {
		return nil, fmt.Errorf("run repo: list tickets: %w", err)
	}
	defer rows.Close()

	var out []session.ActionTicket
	for rows.Next() {
		var (
			ticket  session.ActionTicket
			risk    string
			created string
		)
		if err := rows.Scan(&ticket.ID, &ticket.RunID, &ticket.AssetID, &ticket.Action, &risk, &ticket.Note,
			&ticket.DispatchedBy, &created); err != nil {
			return nil, fmt.Errorf("run repo: scan ticket: %w", err)
		}
		ticket.RiskLevel = prediction.RiskLevel(risk)
		if ticket.CreatedAt, err = sqldb.ParseTime(created); err != nil {
			return nil, fmt.Errorf("run repo: ticket created_at: %w", err)
		}
		out = append(out, ticket)
	}
	return out, rows.Err()
}
