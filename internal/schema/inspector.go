package schema

import (
	"context"

	"github.com/zhsummersy/sql-generator/internal/database"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

// Inspector derives a TableStructure straight from the live engine catalog.
// It never consults the design store, so comparing its output against a
// stored design exposes drift such as manually altered tables.
type Inspector interface {
	Describe(ctx context.Context, tableName string) (*TableStructure, error)
}

// NewInspector returns the catalog reader matching the connection's dialect.
func NewInspector(conn *database.Connection, log *logger.Logger) Inspector {
	if conn.Dialect.Name() == "postgres" {
		return &postgresInspector{conn: conn, logger: log}
	}
	return &sqliteInspector{conn: conn, logger: log}
}
