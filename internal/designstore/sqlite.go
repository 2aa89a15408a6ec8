package designstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhsummersy/sql-generator/internal/config"
	"github.com/zhsummersy/sql-generator/internal/schema"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

// sqliteStore keeps design records in their own SQLite database file,
// deliberately separate from the managed engine database.
type sqliteStore struct {
	db  *sql.DB
	log *logger.Logger
}

const designTableDDL = `
	CREATE TABLE IF NOT EXISTS table_designs (
		table_name  TEXT PRIMARY KEY,
		design_data TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)
`

func newSQLiteStore(cfg *config.Config, log *logger.Logger) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", cfg.DesignStore.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open design store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach design store: %w", err)
	}

	if _, err := db.Exec(designTableDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize design store: %w", err)
	}

	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Put(ctx context.Context, design *schema.Design) error {
	data, err := json.Marshal(design)
	if err != nil {
		return fmt.Errorf("failed to serialize design: %w", err)
	}
	fingerprint := Fingerprint(design)

	var existing string
	err = s.db.QueryRowContext(ctx,
		`SELECT fingerprint FROM table_designs WHERE table_name = ?`, design.Name,
	).Scan(&existing)
	switch {
	case err == nil:
		if existing == fingerprint {
			s.log.WithTable(design.Name).Debug("design unchanged, skipping write")
			return nil
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("failed to read design record: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO table_designs (table_name, design_data, fingerprint, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(table_name) DO UPDATE SET
			design_data = excluded.design_data,
			fingerprint = excluded.fingerprint,
			updated_at  = excluded.updated_at
	`, design.Name, string(data), fingerprint, now, now)
	if err != nil {
		return fmt.Errorf("failed to write design record: %w", err)
	}

	return nil
}

func (s *sqliteStore) Get(ctx context.Context, tableName string) (*Record, error) {
	var (
		record    Record
		data      string
		createdAt string
		updatedAt string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT table_name, design_data, fingerprint, created_at, updated_at
		FROM table_designs WHERE table_name = ?
	`, tableName).Scan(&record.TableName, &data, &record.Fingerprint, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", schema.ErrDesignNotFound, tableName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read design record: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &record.Design); err != nil {
		return nil, fmt.Errorf("failed to decode design record for %s: %w", tableName, err)
	}
	record.CreatedAt = parseStoredTime(createdAt)
	record.UpdatedAt = parseStoredTime(updatedAt)

	return &record, nil
}

func (s *sqliteStore) Delete(ctx context.Context, tableName string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM table_designs WHERE table_name = ?`, tableName)
	if err != nil {
		return fmt.Errorf("failed to delete design record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete design record: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", schema.ErrDesignNotFound, tableName)
	}

	return nil
}

func (s *sqliteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, design_data, fingerprint, created_at, updated_at
		FROM table_designs ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list design records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			record    Record
			data      string
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&record.TableName, &data, &record.Fingerprint, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to read design record: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &record.Design); err != nil {
			return nil, fmt.Errorf("failed to decode design record for %s: %w", record.TableName, err)
		}
		record.CreatedAt = parseStoredTime(createdAt)
		record.UpdatedAt = parseStoredTime(updatedAt)
		records = append(records, record)
	}

	return records, rows.Err()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func parseStoredTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
