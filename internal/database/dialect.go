package database

import (
	"fmt"
	"strings"
)

// Dialect captures the engine-specific pieces the rest of the system needs:
// identifier quoting, catalog queries, and which in-place alterations the
// engine supports natively. Everything else goes through plain SQL.
type Dialect interface {
	Name() string
	DriverName() string

	QuoteIdentifier(name string) string

	// SupportsDropColumn reports whether ALTER TABLE ... DROP COLUMN can be
	// used instead of a full table rebuild.
	SupportsDropColumn() bool

	// TableExistsQuery returns a query with a single positional parameter for
	// the table name, yielding at least one row when the table exists.
	TableExistsQuery() string

	// ListTablesQuery returns a query yielding the names of all user tables,
	// excluding engine-internal ones.
	ListTablesQuery() string

	// SizeQuery returns a query yielding the database size in bytes.
	SizeQuery() string
}

// DialectFor resolves a dialect by normalized engine type.
func DialectFor(engineType string) (Dialect, error) {
	switch engineType {
	case "sqlite":
		return sqliteDialect{}, nil
	case "postgres":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported engine type: %s", engineType)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite" }

func (sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLite is treated as a limited-alteration engine: column addition is the
// only in-place path, every other change goes through drop-and-recreate.
func (sqliteDialect) SupportsDropColumn() bool { return false }

func (sqliteDialect) TableExistsQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (sqliteDialect) ListTablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (sqliteDialect) SizeQuery() string {
	return `SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()`
}

type postgresDialect struct{}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "postgres" }

func (postgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (postgresDialect) SupportsDropColumn() bool { return true }

func (postgresDialect) TableExistsQuery() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1`
}

func (postgresDialect) ListTablesQuery() string {
	return `
		SELECT t.table_name
		FROM information_schema.tables t
		WHERE t.table_type = 'BASE TABLE'
		AND t.table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY t.table_name
	`
}

func (postgresDialect) SizeQuery() string {
	return `SELECT pg_database_size(current_database())`
}
