// Package catalog is the thin execution layer over the managed storage
// engine: existence checks, table listing, database size, and a generic
// statement runner. Caller-supplied statements are passed through verbatim;
// the engine itself is the only validator, which is a documented trust
// boundary of the raw-statement endpoint.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhsummersy/sql-generator/internal/database"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

// QueryResult is the tabular answer to a read-only statement: ordered column
// names plus rows as column-to-value maps.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"results"`
}

// ExecResult is the outcome of Execute: exactly one of Query or RowsAffected
// is meaningful, depending on the statement kind.
type ExecResult struct {
	Query        *QueryResult
	RowsAffected int64
}

type Gateway struct {
	conn *database.Connection
	log  *logger.Logger
}

func NewGateway(conn *database.Connection, log *logger.Logger) *Gateway {
	return &Gateway{conn: conn, log: log}
}

// Exists reports whether the live catalog has a table with the given name.
// The catalog is re-queried every time; no in-process view is trusted.
func (g *Gateway) Exists(ctx context.Context, tableName string) (bool, error) {
	rows, err := g.conn.DB.QueryContext(ctx, g.conn.Dialect.TableExistsQuery(), tableName)
	if err != nil {
		return false, fmt.Errorf("failed to query table existence: %w", err)
	}
	defer rows.Close()

	exists := rows.Next()
	return exists, rows.Err()
}

// ListTables returns the names of all user tables, excluding engine-internal
// ones.
func (g *Gateway) ListTables(ctx context.Context) ([]string, error) {
	rows, err := g.conn.DB.QueryContext(ctx, g.conn.Dialect.ListTablesQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to read table name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// Size returns the database size in bytes.
func (g *Gateway) Size(ctx context.Context) (int64, error) {
	var size int64
	if err := g.conn.DB.QueryRowContext(ctx, g.conn.Dialect.SizeQuery()).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to query database size: %w", err)
	}
	return size, nil
}

// readKeywords are the leading keywords that route a statement through the
// query path instead of the exec path.
var readKeywords = map[string]struct{}{
	"SELECT":  {},
	"PRAGMA":  {},
	"EXPLAIN": {},
	"WITH":    {},
	"SHOW":    {},
}

// IsQuery reports whether the statement starts with a read-only keyword.
func IsQuery(statement string) bool {
	fields := strings.Fields(strings.TrimSpace(statement))
	if len(fields) == 0 {
		return false
	}
	_, ok := readKeywords[strings.ToUpper(fields[0])]
	return ok
}

// Execute runs an arbitrary statement. Read-only statements return a
// QueryResult; everything else returns the affected-row count.
func (g *Gateway) Execute(ctx context.Context, statement string) (*ExecResult, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, fmt.Errorf("statement cannot be empty")
	}

	g.log.WithComponent("catalog").Debugf("executing: %s", statement)

	if IsQuery(statement) {
		result, err := g.query(ctx, statement)
		if err != nil {
			return nil, err
		}
		return &ExecResult{Query: result}, nil
	}

	result, err := g.conn.DB.ExecContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		// Some engines cannot report a count for DDL; treat that as zero.
		affected = 0
	}

	return &ExecResult{RowsAffected: affected}, nil
}

func (g *Gateway) query(ctx context.Context, statement string) (*QueryResult, error) {
	rows, err := g.conn.DB.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to read result row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}

	return result, rows.Err()
}

// normalizeValue makes driver values JSON-friendly.
func normalizeValue(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
