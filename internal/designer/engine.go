// Package designer orchestrates design-to-schema synchronization: it turns
// declarative table designs into DDL, decides between in-place alteration and
// drop-and-recreate, and keeps the design store consistent with the live
// schema.
package designer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zhsummersy/sql-generator/internal/catalog"
	"github.com/zhsummersy/sql-generator/internal/config"
	"github.com/zhsummersy/sql-generator/internal/database"
	"github.com/zhsummersy/sql-generator/internal/designstore"
	"github.com/zhsummersy/sql-generator/internal/schema"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

// describeParallelism bounds the catalog fan-out when describing every table.
const describeParallelism = 4

type Options struct {
	// Strategy selects between config.StrategyAuto and config.StrategyRebuild.
	Strategy string
	Logger   *logger.Logger
}

// Engine serializes all mutating operations per table name: each operation
// holds the table's lock from "read current design" through "persist new
// design". Operations on different tables proceed independently.
type Engine struct {
	gateway   *catalog.Gateway
	inspector schema.Inspector
	store     designstore.Store
	builder   *schema.Builder
	dialect   database.Dialect
	strategy  string
	log       *logger.Logger

	mu     sync.Mutex
	tables map[string]*sync.Mutex
}

func New(conn *database.Connection, store designstore.Store, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = logger.NewLogger(false)
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = config.StrategyAuto
	}

	return &Engine{
		gateway:   catalog.NewGateway(conn, log),
		inspector: schema.NewInspector(conn, log),
		store:     store,
		builder:   schema.NewBuilder(conn.Dialect),
		dialect:   conn.Dialect,
		strategy:  strategy,
		log:       log,
		tables:    make(map[string]*sync.Mutex),
	}
}

// Gateway exposes the underlying catalog layer for the raw-statement and
// status boundary operations.
func (e *Engine) Gateway() *catalog.Gateway {
	return e.gateway
}

func (e *Engine) lockTable(name string) func() {
	e.mu.Lock()
	m, ok := e.tables[name]
	if !ok {
		m = &sync.Mutex{}
		e.tables[name] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// CreateOrReplace materializes the design as a live table and records it in
// the design store. When a table with that name already exists the call fails
// with schema.ErrTableExists unless replace is set; the replace path drops
// the existing table first, which discards its rows.
func (e *Engine) CreateOrReplace(ctx context.Context, design *schema.Design, replace bool) error {
	if err := design.Validate(); err != nil {
		return err
	}

	unlock := e.lockTable(design.Name)
	defer unlock()

	return e.applyLocked(ctx, design, replace)
}

// applyLocked runs the create-or-rebuild sequence. The caller must hold the
// table lock.
func (e *Engine) applyLocked(ctx context.Context, design *schema.Design, allowReplace bool) error {
	createStmt, err := e.builder.BuildCreate(design)
	if err != nil {
		return err
	}

	exists, err := e.gateway.Exists(ctx, design.Name)
	if err != nil {
		return err
	}
	if exists && !allowReplace {
		return fmt.Errorf("%w: %s", schema.ErrTableExists, design.Name)
	}

	if exists {
		e.log.WithTable(design.Name).Warn("dropping existing table before recreation, existing rows are lost")
		if _, err := e.gateway.Execute(ctx, e.builder.BuildDropTable(design.Name)); err != nil {
			return fmt.Errorf("%w: %w", schema.ErrSchemaOperation, err)
		}
	}

	if _, err := e.gateway.Execute(ctx, createStmt); err != nil {
		return fmt.Errorf("%w: %w", schema.ErrSchemaOperation, err)
	}

	if err := e.store.Put(ctx, design); err != nil {
		e.log.WithTable(design.Name).Errorf("live schema updated but design record was not: %v", err)
		return fmt.Errorf("%w: %w", schema.ErrDesignPersistence, err)
	}

	e.log.WithTable(design.Name).Info("table synchronized")
	return nil
}

// AddField appends a column to a live table. This is the one truly
// incremental path: the engine supports column addition natively, so no
// rebuild happens. When the table has no design record the live column is
// still added and only the record update is skipped; live-table presence is
// authoritative for existence.
func (e *Engine) AddField(ctx context.Context, tableName string, field schema.Field) error {
	unlock := e.lockTable(tableName)
	defer unlock()

	exists, err := e.gateway.Exists(ctx, tableName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", schema.ErrTableNotFound, tableName)
	}

	record, err := e.store.Get(ctx, tableName)
	if err != nil && !errors.Is(err, schema.ErrDesignNotFound) {
		return err
	}

	if record != nil && record.Design.FieldIndex(field.Name) >= 0 {
		return fmt.Errorf("%w: %s.%s", schema.ErrDuplicateField, tableName, field.Name)
	}

	stmt, err := e.builder.BuildAddColumn(tableName, field)
	if err != nil {
		return err
	}

	if _, err := e.gateway.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("%w: %w", schema.ErrSchemaOperation, err)
	}

	if record == nil {
		e.log.WithTable(tableName).Warn("no design record for table, column added without recording")
		return nil
	}

	updated := *record.Design
	updated.Fields = append(append([]schema.Field{}, record.Design.Fields...), field)
	if err := e.store.Put(ctx, &updated); err != nil {
		e.log.WithTable(tableName).Errorf("live schema updated but design record was not: %v", err)
		return fmt.Errorf("%w: %w", schema.ErrDesignPersistence, err)
	}

	return nil
}

// RemoveField removes a column. On engines with native DROP COLUMN and the
// auto strategy this is done in place; otherwise the table is rebuilt from
// the reduced field list, which discards all rows, not just the removed
// column.
func (e *Engine) RemoveField(ctx context.Context, tableName, fieldName string) error {
	unlock := e.lockTable(tableName)
	defer unlock()

	record, err := e.store.Get(ctx, tableName)
	if err != nil {
		return err
	}

	idx := record.Design.FieldIndex(fieldName)
	if idx < 0 {
		return fmt.Errorf("%w: %s.%s", schema.ErrFieldNotFound, tableName, fieldName)
	}

	reduced := *record.Design
	reduced.Fields = make([]schema.Field, 0, len(record.Design.Fields)-1)
	for _, f := range record.Design.Fields {
		if f.Name != fieldName {
			reduced.Fields = append(reduced.Fields, f)
		}
	}

	if e.dropsInPlace() {
		exists, err := e.gateway.Exists(ctx, tableName)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", schema.ErrTableNotFound, tableName)
		}

		stmt, err := e.builder.BuildDropColumn(tableName, fieldName)
		if err != nil {
			return err
		}
		if _, err := e.gateway.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", schema.ErrSchemaOperation, err)
		}

		if err := e.store.Put(ctx, &reduced); err != nil {
			e.log.WithTable(tableName).Errorf("live schema updated but design record was not: %v", err)
			return fmt.Errorf("%w: %w", schema.ErrDesignPersistence, err)
		}
		return nil
	}

	return e.applyLocked(ctx, &reduced, true)
}

// UpdateField replaces a field definition in place, preserving its position
// in the field list, then rebuilds the table from the updated design.
func (e *Engine) UpdateField(ctx context.Context, tableName, fieldName string, newField schema.Field) error {
	unlock := e.lockTable(tableName)
	defer unlock()

	record, err := e.store.Get(ctx, tableName)
	if err != nil {
		return err
	}

	idx := record.Design.FieldIndex(fieldName)
	if idx < 0 {
		return fmt.Errorf("%w: %s.%s", schema.ErrFieldNotFound, tableName, fieldName)
	}

	if newField.Name == "" {
		return fmt.Errorf("%w: field name cannot be empty", schema.ErrInvalidField)
	}
	if newField.Name != fieldName && record.Design.FieldIndex(newField.Name) >= 0 {
		return fmt.Errorf("%w: %s.%s", schema.ErrDuplicateField, tableName, newField.Name)
	}

	updated := *record.Design
	updated.Fields = append([]schema.Field{}, record.Design.Fields...)
	updated.Fields[idx] = newField

	return e.applyLocked(ctx, &updated, true)
}

// Drop removes the live table and its design record in the same logical
// operation. A record that fails to delete after the live drop succeeded is a
// reported inconsistency, not a silent one.
func (e *Engine) Drop(ctx context.Context, tableName string) error {
	unlock := e.lockTable(tableName)
	defer unlock()

	exists, err := e.gateway.Exists(ctx, tableName)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", schema.ErrTableNotFound, tableName)
	}

	if _, err := e.gateway.Execute(ctx, e.builder.BuildDropTable(tableName)); err != nil {
		return fmt.Errorf("%w: %w", schema.ErrSchemaOperation, err)
	}

	if err := e.store.Delete(ctx, tableName); err != nil {
		if errors.Is(err, schema.ErrDesignNotFound) {
			// Table predates the design store; nothing to clean up.
			return nil
		}
		e.log.WithTable(tableName).Errorf("table dropped but design record remains: %v", err)
		return fmt.Errorf("%w: %w", schema.ErrDesignPersistence, err)
	}

	e.log.WithTable(tableName).Info("table dropped")
	return nil
}

// Describe returns the live structure of one table.
func (e *Engine) Describe(ctx context.Context, tableName string) (*schema.TableStructure, error) {
	return e.inspector.Describe(ctx, tableName)
}

// DescribeAll snapshots every user table in the catalog. Tables are described
// concurrently; a table dropped between listing and describing is skipped.
func (e *Engine) DescribeAll(ctx context.Context) ([]schema.TableStructure, error) {
	names, err := e.gateway.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*schema.TableStructure, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(describeParallelism)

	for i, name := range names {
		g.Go(func() error {
			structure, err := e.inspector.Describe(gctx, name)
			if err != nil {
				if errors.Is(err, schema.ErrTableNotFound) {
					return nil
				}
				return err
			}
			snapshots[i] = structure
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	structures := make([]schema.TableStructure, 0, len(snapshots))
	for _, s := range snapshots {
		if s != nil {
			structures = append(structures, *s)
		}
	}
	return structures, nil
}

// TableDetail pairs a live structure with the stored design, which is nil
// when the table predates the design store.
type TableDetail struct {
	Structure *schema.TableStructure
	Design    *schema.Design
}

func (e *Engine) Detail(ctx context.Context, tableName string) (*TableDetail, error) {
	structure, err := e.inspector.Describe(ctx, tableName)
	if err != nil {
		return nil, err
	}

	detail := &TableDetail{Structure: structure}
	record, err := e.store.Get(ctx, tableName)
	if err == nil {
		detail.Design = record.Design
	} else if !errors.Is(err, schema.ErrDesignNotFound) {
		return nil, err
	}

	return detail, nil
}

// Status summarizes the managed database.
type Status struct {
	TablesCount  int       `json:"tables_count"`
	Tables       []string  `json:"tables"`
	DatabaseSize int64     `json:"database_size"`
	LastUpdated  time.Time `json:"last_updated"`
}

func (e *Engine) Status(ctx context.Context) (*Status, error) {
	names, err := e.gateway.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}

	size, err := e.gateway.Size(ctx)
	if err != nil {
		return nil, err
	}

	return &Status{
		TablesCount:  len(names),
		Tables:       names,
		DatabaseSize: size,
		LastUpdated:  time.Now().UTC(),
	}, nil
}

func (e *Engine) dropsInPlace() bool {
	return e.strategy == config.StrategyAuto && e.dialect.SupportsDropColumn()
}
