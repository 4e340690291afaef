// Package data persists imported food profiles and search results in
// sqlite (default) or postgres.
package data

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DataFileName  = "data.db"
	schemaVersion = 1
	timeFormat    = "2006-01-02T15:04:05.000Z07:00"
	defaultLimit  = 100
)

// Dialect is the SQL flavor of the underlying database.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

var (
	//go:embed sql/*
	f embed.FS

	ErrDBNotInitialized = errors.New("database not initialized")
	ErrSchemaVersion    = errors.New("unsupported schema version")
)

// Store wraps the database connection.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// DialectFor returns the dialect implied by dsn. postgres:// and
// postgresql:// URLs are postgres, anything else is a sqlite file path.
func DialectFor(dsn string) Dialect {
	d := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Open connects to dsn and applies the schema.
func Open(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("dsn not specified")
	}

	s := &Store{dialect: DialectFor(dsn)}

	if s.dialect == SQLite {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open(string(s.dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", s.dialect, err)
	}
	s.db = db

	if s.dialect == SQLite {
		// single writer avoids SQLITE_BUSY under the dashboard server
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("data initialized", "dialect", s.dialect)
	return s, nil
}

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect {
	if s == nil {
		return ""
	}
	return s.dialect
}

// Close closes the database if one was opened.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := f.ReadFile("sql/" + string(s.dialect) + ".sql")
	if err != nil {
		return fmt.Errorf("failed to read the schema creation file: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("failed to create %s database schema: %w", s.dialect, err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	switch {
	case !version.Valid:
		if _, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO schema_version (version) VALUES (?)"), schemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		slog.Debug("db schema created", "version", schemaVersion)
	case version.Int64 > schemaVersion:
		return fmt.Errorf("%w: %d (max %d)", ErrSchemaVersion, version.Int64, schemaVersion)
	}

	return nil
}

// SchemaVersion returns the recorded schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrDBNotInitialized
	}
	var v int
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// rebind converts ? placeholders into $n for postgres.
func (s *Store) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
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

func (s *Store) check() error {
	if s == nil || s.db == nil {
		return ErrDBNotInitialized
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeFormat, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// NormalizeQuery is the key search results are stored under.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
