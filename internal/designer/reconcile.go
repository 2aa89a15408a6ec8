package designer

import (
	"context"
	"errors"
	"sort"

	"github.com/zhsummersy/sql-generator/internal/schema"
)

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Checked   int
	Repaired  []string // records rewritten because they diverged from the live table
	Untracked []string // live tables that had no record, now recorded
	Orphaned  []string // records deleted because their table no longer exists
}

// Reconcile walks the live catalog and makes the design store agree with it,
// treating the live schema as ground truth. A record that structurally
// diverges from its table (different column or primary-key sets) is rewritten
// from a design derived off the live structure; live tables without a record
// get one; records without a live table are deleted. onTable, when non-nil,
// is invoked once per live table for progress reporting.
func (e *Engine) Reconcile(ctx context.Context, onTable func(name string)) (*ReconcileReport, error) {
	names, err := e.gateway.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	live := make(map[string]struct{}, len(names))

	for _, name := range names {
		live[name] = struct{}{}
		if err := e.reconcileTable(ctx, name, report); err != nil {
			return nil, err
		}
		report.Checked++
		if onTable != nil {
			onTable(name)
		}
	}

	records, err := e.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if _, ok := live[record.TableName]; ok {
			continue
		}
		unlock := e.lockTable(record.TableName)
		err := e.store.Delete(ctx, record.TableName)
		unlock()
		if err != nil && !errors.Is(err, schema.ErrDesignNotFound) {
			return nil, err
		}
		e.log.WithTable(record.TableName).Warn("removed design record for missing table")
		report.Orphaned = append(report.Orphaned, record.TableName)
	}

	return report, nil
}

func (e *Engine) reconcileTable(ctx context.Context, name string, report *ReconcileReport) error {
	unlock := e.lockTable(name)
	defer unlock()

	structure, err := e.inspector.Describe(ctx, name)
	if err != nil {
		if errors.Is(err, schema.ErrTableNotFound) {
			// Dropped between listing and describing.
			return nil
		}
		return err
	}

	record, err := e.store.Get(ctx, name)
	switch {
	case errors.Is(err, schema.ErrDesignNotFound):
		if err := e.store.Put(ctx, designFromStructure(structure)); err != nil {
			return err
		}
		e.log.WithTable(name).Info("recorded design for untracked table")
		report.Untracked = append(report.Untracked, name)
	case err != nil:
		return err
	case !consistent(record.Design, structure):
		if err := e.store.Put(ctx, designFromStructure(structure)); err != nil {
			return err
		}
		e.log.WithTable(name).Warn("design record diverged from live schema, rebuilt from catalog")
		report.Repaired = append(report.Repaired, name)
	}

	return nil
}

// designFromStructure derives a design from a live snapshot. Attributes the
// catalog cannot answer (uniqueness, declared length) are left at their zero
// values; the derived design is a faithful record of what is observable.
func designFromStructure(structure *schema.TableStructure) *schema.Design {
	design := &schema.Design{Name: structure.Name}
	for _, col := range structure.Columns {
		field := schema.Field{
			Name:     col.Name,
			Type:     col.Type,
			Nullable: col.Nullable,
			Primary:  col.PrimaryKey,
		}
		if col.Default != nil {
			field.Default = *col.Default
		}
		design.Fields = append(design.Fields, field)
	}
	return design
}

// consistent checks the cross-entity invariant between a design and a live
// structure: equal column name sets and equal primary-key sets.
func consistent(design *schema.Design, structure *schema.TableStructure) bool {
	if design == nil {
		return false
	}

	fieldNames := make([]string, len(design.Fields))
	for i, f := range design.Fields {
		fieldNames[i] = f.Name
	}
	if !sameSet(fieldNames, structure.ColumnNames()) {
		return false
	}

	return sameSet(design.PrimaryFields(), structure.PrimaryKeys)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string{}, a...)
	bs := append([]string{}, b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
