package schema

// Field is one column specification inside a Design. Nullable defaults to
// true when omitted from JSON, matching what callers of the HTTP API expect.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Length   int    `json:"length,omitempty"`
	Nullable bool   `json:"nullable"`
	Unique   bool   `json:"unique,omitempty"`
	Primary  bool   `json:"primary,omitempty"`
	Default  any    `json:"default,omitempty"`
}

// Design is a declarative description of a table: its name, an optional
// free-text comment, and an ordered field list. Field order determines column
// order whenever the table is created or rebuilt.
type Design struct {
	Name    string  `json:"name"`
	Comment string  `json:"comment,omitempty"`
	Fields  []Field `json:"fields"`
}

// Column describes one column of a live table as reported by the engine
// catalog.
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default_value"`
	PrimaryKey bool    `json:"primary_key"`
	Position   int     `json:"-"`
}

// TableStructure is a read-only snapshot of a live table derived from the
// engine catalog. It is recomputed on demand and never persisted.
type TableStructure struct {
	Name        string   `json:"name"`
	Columns     []Column `json:"columns"`
	PrimaryKeys []string `json:"primary_keys"`
}

// FieldIndex returns the position of the named field within the design, or -1
// when absent.
func (d *Design) FieldIndex(name string) int {
	for i, f := range d.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// PrimaryFields returns the names of all fields marked as primary, in
// declaration order.
func (d *Design) PrimaryFields() []string {
	var keys []string
	for _, f := range d.Fields {
		if f.Primary {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// Validate checks the structural invariants of a design: a non-empty table
// name, at least one field, non-empty field names, and no repeated field
// names.
func (d *Design) Validate() error {
	if d == nil || d.Name == "" {
		return wrapf(ErrInvalidDesign, "table name is required")
	}
	if len(d.Fields) == 0 {
		return wrapf(ErrInvalidDesign, "at least one field is required")
	}

	seen := make(map[string]struct{}, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return wrapf(ErrInvalidDesign, "field name cannot be empty")
		}
		if _, ok := seen[f.Name]; ok {
			return wrapf(ErrInvalidDesign, "field %s is declared more than once", f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	return nil
}

// ColumnNames returns the ordered column name list of the snapshot.
func (t *TableStructure) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
