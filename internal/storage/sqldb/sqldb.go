package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a DB.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

const sqlitePrefix = "sqlite:"

// DB is a database handle that knows its placeholder dialect.
// Queries are written with ? placeholders and rebound per dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open selects the driver from the DSN: postgres:// and postgresql:// use
// pgx, sqlite:<path> uses modernc sqlite. sqlite::memory: is accepted.
func Open(dsn string) (*DB, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		return &DB{DB: db, Dialect: Postgres}, nil
	case strings.HasPrefix(dsn, sqlitePrefix):
		path := strings.TrimPrefix(dsn, sqlitePrefix)
		if path == "" {
			return nil, errors.New("sqldb: empty sqlite path")
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// a single connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
		return &DB{DB: db, Dialect: SQLite}, nil
	default:
		return nil, fmt.Errorf("sqldb: unsupported dsn %q", redact(dsn))
	}
}

// Rebind rewrites ? placeholders for the dialect.
func (d *DB) Rebind(query string) string {
	if d == nil || d.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Migrate executes schema statements in order.
func (d *DB) Migrate(ctx context.Context, statements ...string) error {
	if d == nil || d.DB == nil {
		return errors.New("sqldb: nil db")
	}
	for _, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime encodes timestamps as sortable UTC text for both dialects.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// ParseTime decodes a value written by FormatTime. Empty text is the zero time.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		return "***" + dsn[i:]
	}
	return dsn
}
