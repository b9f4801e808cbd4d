package audit

import (
	"context"
	"errors"
	"fmt"

	"forsee-cloud/internal/storage/sqldb"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id             TEXT PRIMARY KEY,
	actor          TEXT NOT NULL,
	role           TEXT NOT NULL,
	action         TEXT NOT NULL,
	resource_type  TEXT NOT NULL,
	resource_id    TEXT NOT NULL,
	correlation_id TEXT NOT NULL,
	metadata       TEXT,
	payload_digest TEXT NOT NULL,
	created_at     TEXT NOT NULL
)`

// Repository writes audit logs.
type Repository struct {
	db *sqldb.DB
}

// NewRepository constructs an audit repository and ensures its table exists.
func NewRepository(ctx context.Context, db *sqldb.DB) (*Repository, error) {
	if db == nil {
		return nil, errors.New("audit repo: nil db")
	}
	if err := db.Migrate(ctx, schema); err != nil {
		return nil, fmt.Errorf("audit repo: %w", err)
	}
	return &Repository{db: db}, nil
}

// Log writes an audit entry.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	entry = normalize(entry)

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
INSERT INTO audit_logs (
	id, actor, role, action, resource_type, resource_id, correlation_id,
	metadata, payload_digest, created_at
) VALUES (?,?,?,?,?,?,?,?,?,?)`),
		entry.ID, entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID, entry.CorrelationID,
		string(entry.Metadata), entry.PayloadDigest, sqldb.FormatTime(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("audit repo: insert: %w", err)
	}
	return nil
}

// ListByResource returns entries for a resource, oldest first.
func (r *Repository) ListByResource(ctx context.Context, resourceType, resourceID string) ([]Entry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("audit repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
SELECT id, actor, role, action, resource_type, resource_id, correlation_id, metadata, payload_digest, created_at
FROM audit_logs WHERE resource_type = ? AND resource_id = ? ORDER BY created_at, id`), resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("audit repo: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry     Entry
			metadata  string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Role, &entry.Action, &entry.ResourceType, &entry.ResourceID,
			&entry.CorrelationID, &metadata, &entry.PayloadDigest, &createdAt); err != nil {
			return nil, fmt.Errorf("audit repo: scan: %w", err)
		}
		if metadata != "" {
			entry.Metadata = []byte(metadata)
		}
		if entry.CreatedAt, err = sqldb.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("audit repo: created_at: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
