package database

import (
	"database/sql"
	"fmt"

	"github.com/zhsummersy/sql-generator/internal/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Connection wraps the engine handle together with its dialect and the config
// it was opened from.
type Connection struct {
	DB      *sql.DB
	Dialect Dialect
	Config  *config.Config
}

func NewConnection(cfg *config.Config) (*Connection, error) {
	dialect, err := DialectFor(cfg.Engine.Type)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), cfg.EngineDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	if dialect.Name() == "sqlite" {
		// Keep referential actions working for caller-supplied statements.
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	return &Connection{
		DB:      db,
		Dialect: dialect,
		Config:  cfg,
	}, nil
}

func (c *Connection) Close() error {
	return c.DB.Close()
}

func (c *Connection) EngineName() string {
	return c.Dialect.Name()
}
