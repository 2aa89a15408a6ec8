package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/zhsummersy/sql-generator/internal/database"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

type sqliteInspector struct {
	conn   *database.Connection
	logger *logger.Logger
}

// Describe reads PRAGMA table_info. SQLite answers an empty row set rather
// than an error for unknown tables, so zero columns means the table does not
// exist.
func (i *sqliteInspector) Describe(ctx context.Context, tableName string) (*TableStructure, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", i.conn.Dialect.QuoteIdentifier(tableName))

	rows, err := i.conn.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer rows.Close()

	structure := &TableStructure{Name: tableName}

	type pkEntry struct {
		name  string
		order int
	}
	var pks []pkEntry

	for rows.Next() {
		var (
			col          Column
			cid          int
			notNull      int
			defaultValue sql.NullString
			pkOrder      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defaultValue, &pkOrder); err != nil {
			return nil, fmt.Errorf("failed to read column metadata: %w", err)
		}

		col.Position = cid + 1
		col.Nullable = notNull == 0
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}
		col.PrimaryKey = pkOrder > 0

		structure.Columns = append(structure.Columns, col)
		if pkOrder > 0 {
			pks = append(pks, pkEntry{name: col.Name, order: pkOrder})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read column metadata: %w", err)
	}

	if len(structure.Columns) == 0 {
		return nil, wrapf(ErrTableNotFound, "%s", tableName)
	}

	// pk order from the pragma is 1-based position within the composite key.
	sort.Slice(pks, func(a, b int) bool { return pks[a].order < pks[b].order })
	for _, pk := range pks {
		structure.PrimaryKeys = append(structure.PrimaryKeys, pk.name)
	}

	return structure, nil
}
