package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	access "forsee-cloud/internal/access/domain"
	"forsee-cloud/internal/storage/sqldb"
)

const schema = `
CREATE TABLE IF NOT EXISTS role_requests (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL,
	user_name  TEXT NOT NULL,
	role       TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	decided_at TEXT NOT NULL DEFAULT '',
	decided_by TEXT NOT NULL DEFAULT ''
)`

const indexSchema = `CREATE INDEX IF NOT EXISTS role_requests_subject_idx ON role_requests (subject, created_at)`

const selectColumns = `SELECT id, subject, user_name, role, status, created_at, decided_at, decided_by FROM role_requests`

// RoleRequestRepository stores role requests in Postgres or SQLite.
type RoleRequestRepository struct {
	db *sqldb.DB
}

// NewRoleRequestRepository constructs the repository and ensures its schema.
func NewRoleRequestRepository(ctx context.Context, db *sqldb.DB) (*RoleRequestRepository, error) {
	if db == nil {
		return nil, errors.New("role request repo: nil db")
	}
	if err := db.Migrate(ctx, schema, indexSchema); err != nil {
		return nil, fmt.Errorf("role request repo: %w", err)
	}
	return &RoleRequestRepository{db: db}, nil
}

// Save upserts a request.
func (r *RoleRequestRepository) Save(ctx context.Context, req access.RoleRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
INSERT INTO role_requests (id, subject, user_name, role, status, created_at, decided_at, decided_by)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT (id) DO UPDATE SET
	status = excluded.status,
	decided_at = excluded.decided_at,
	decided_by = excluded.decided_by`),
		req.ID, req.Subject, req.UserName, string(req.Role), req.Status,
		sqldb.FormatTime(req.CreatedAt), sqldb.FormatTime(req.DecidedAt), req.DecidedBy)
	if err != nil {
		return fmt.Errorf("role request repo: save: %w", err)
	}
	return nil
}

// Get loads a request by id.
func (r *RoleRequestRepository) Get(ctx context.Context, id string) (access.RoleRequest, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(selectColumns+` WHERE id = ?`), id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return access.RoleRequest{}, access.ErrRequestNotFound
	}
	return req, err
}

// LatestBySubject returns the most recent request filed by subject.
func (r *RoleRequestRepository) LatestBySubject(ctx context.Context, subject string) (access.RoleRequest, bool, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(selectColumns+` WHERE subject = ? ORDER BY created_at DESC, id DESC LIMIT 1`), subject)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return access.RoleRequest{}, false, nil
	}
	if err != nil {
		return access.RoleRequest{}, false, err
	}
	return req, true, nil
}

// ListByStatus returns requests with status, oldest first.
func (r *RoleRequestRepository) ListByStatus(ctx context.Context, status string) ([]access.RoleRequest, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(selectColumns+` WHERE status = ? ORDER BY created_at, id`), status)
	if err != nil {
		return nil, fmt.Errorf("role request repo: list: %w", err)
	}
	defer rows.Close()

	var result []access.RoleRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (access.RoleRequest, error) {
	var (
		req                  access.RoleRequest
		role                 string
		createdAt, decidedAt string
	)
	if err := row.Scan(&req.ID, &req.Subject, &req.UserName, &role, &req.Status, &createdAt, &decidedAt, &req.DecidedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return access.RoleRequest{}, err
		}
		return access.RoleRequest{}, fmt.Errorf("role request repo: scan: %w", err)
	}
	req.Role = access.Role(role)
	var err error
	if req.CreatedAt, err = sqldb.ParseTime(createdAt); err != nil {
		return access.RoleRequest{}, fmt.Errorf("role request repo: created_at: %w", err)
	}
	if req.DecidedAt, err = sqldb.ParseTime(decidedAt); err != nil {
		return access.RoleRequest{}, fmt.Errorf("role request repo: decided_at: %w", err)
	}
	return req, nil
}
