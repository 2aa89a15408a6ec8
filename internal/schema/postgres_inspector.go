package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zhsummersy/sql-generator/internal/database"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

type postgresInspector struct {
	conn   *database.Connection
	logger *logger.Logger
}

func (i *postgresInspector) Describe(ctx context.Context, tableName string) (*TableStructure, error) {
	structure := &TableStructure{Name: tableName}

	if err := i.describeColumns(ctx, structure); err != nil {
		return nil, err
	}
	if len(structure.Columns) == 0 {
		return nil, wrapf(ErrTableNotFound, "%s", tableName)
	}

	if err := i.describePrimaryKeys(ctx, structure); err != nil {
		return nil, err
	}

	pkSet := make(map[string]struct{}, len(structure.PrimaryKeys))
	for _, pk := range structure.PrimaryKeys {
		pkSet[pk] = struct{}{}
	}
	for idx := range structure.Columns {
		if _, ok := pkSet[structure.Columns[idx].Name]; ok {
			structure.Columns[idx].PrimaryKey = true
		}
	}

	return structure, nil
}

func (i *postgresInspector) describeColumns(ctx context.Context, structure *TableStructure) error {
	query := `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default,
			character_maximum_length,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := i.conn.DB.QueryContext(ctx, query, structure.Name)
	if err != nil {
		return fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			col          Column
			isNullable   string
			defaultValue sql.NullString
			maxLength    sql.NullInt64
		)

		err := rows.Scan(
			&col.Name,
			&col.Type,
			&isNullable,
			&defaultValue,
			&maxLength,
			&col.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to read column metadata: %w", err)
		}

		col.Nullable = isNullable == "YES"
		if defaultValue.Valid {
			col.Default = &defaultValue.String
		}
		if maxLength.Valid {
			col.Type = fmt.Sprintf("%s(%d)", col.Type, maxLength.Int64)
		}

		structure.Columns = append(structure.Columns, col)
	}

	return rows.Err()
}

func (i *postgresInspector) describePrimaryKeys(ctx context.Context, structure *TableStructure) error {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = 'public' AND table_name = $1
		AND constraint_name IN (
			SELECT constraint_name
			FROM information_schema.table_constraints
			WHERE table_schema = 'public' AND table_name = $1
			AND constraint_type = 'PRIMARY KEY'
		)
		ORDER BY ordinal_position
	`

	rows, err := i.conn.DB.QueryContext(ctx, query, structure.Name)
	if err != nil {
		return fmt.Errorf("failed to query primary key metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var columnName string
		if err := rows.Scan(&columnName); err != nil {
			return fmt.Errorf("failed to read primary key metadata: %w", err)
		}
		structure.PrimaryKeys = append(structure.PrimaryKeys, columnName)
	}

	return rows.Err()
}
