package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zhsummersy/sql-generator/internal/database"
)

// Builder renders data-definition statements from designs. It is pure: no
// handle, no I/O, so every clause-ordering and quoting decision is testable
// without a live engine. All caller-supplied identifiers pass through the
// dialect quoter here and nowhere else.
type Builder struct {
	dialect database.Dialect
}

func NewBuilder(dialect database.Dialect) *Builder {
	return &Builder{dialect: dialect}
}

type clauseKind int

const (
	clauseColumn clauseKind = iota
	clauseConstraint
)

// clause is one tagged element of a statement body. Columns always render
// before table-level constraints.
type clause struct {
	kind clauseKind
	text string
}

func renderClauses(clauses []clause) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c.kind == clauseColumn {
			parts = append(parts, c.text)
		}
	}
	for _, c := range clauses {
		if c.kind == clauseConstraint {
			parts = append(parts, c.text)
		}
	}
	return strings.Join(parts, ", ")
}

// BuildCreate renders a CREATE TABLE statement for the full design. Fields
// marked primary are aggregated into a single composite PRIMARY KEY clause.
func (b *Builder) BuildCreate(design *Design) (string, error) {
	if err := design.Validate(); err != nil {
		return "", err
	}

	clauses := make([]clause, 0, len(design.Fields)+1)
	for _, field := range design.Fields {
		text, err := b.fieldClause(field)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause{kind: clauseColumn, text: text})
	}

	if primary := design.PrimaryFields(); len(primary) > 0 {
		quoted := make([]string, len(primary))
		for i, name := range primary {
			quoted[i] = b.dialect.QuoteIdentifier(name)
		}
		clauses = append(clauses, clause{
			kind: clauseConstraint,
			text: fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(quoted, ", ")),
		})
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (%s)",
		b.dialect.QuoteIdentifier(design.Name),
		renderClauses(clauses),
	), nil
}

// BuildAddColumn renders a single-column ALTER TABLE ... ADD COLUMN statement
// using the same per-field clause rules as BuildCreate.
func (b *Builder) BuildAddColumn(tableName string, field Field) (string, error) {
	text, err := b.fieldClause(field)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN %s",
		b.dialect.QuoteIdentifier(tableName),
		text,
	), nil
}

// BuildDropColumn renders an in-place column removal. Only valid on dialects
// reporting SupportsDropColumn.
func (b *Builder) BuildDropColumn(tableName, fieldName string) (string, error) {
	if fieldName == "" {
		return "", wrapf(ErrInvalidField, "field name cannot be empty")
	}

	return fmt.Sprintf(
		"ALTER TABLE %s DROP COLUMN %s",
		b.dialect.QuoteIdentifier(tableName),
		b.dialect.QuoteIdentifier(fieldName),
	), nil
}

// BuildDropTable renders a DROP TABLE statement.
func (b *Builder) BuildDropTable(tableName string) string {
	return fmt.Sprintf("DROP TABLE %s", b.dialect.QuoteIdentifier(tableName))
}

// fieldClause renders one column definition in fixed order: name, type with
// optional length, NOT NULL, UNIQUE, DEFAULT.
func (b *Builder) fieldClause(field Field) (string, error) {
	if field.Name == "" {
		return "", wrapf(ErrInvalidField, "field name cannot be empty")
	}
	if field.Type == "" {
		return "", wrapf(ErrInvalidField, "field %s has no type", field.Name)
	}

	var sb strings.Builder
	sb.WriteString(b.dialect.QuoteIdentifier(field.Name))
	sb.WriteString(" ")
	sb.WriteString(field.Type)
	if field.Length > 0 {
		fmt.Fprintf(&sb, "(%d)", field.Length)
	}

	if !field.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if field.Unique {
		sb.WriteString(" UNIQUE")
	}
	if field.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(defaultLiteral(field.Default))
	}

	return sb.String(), nil
}

// defaultLiteral renders a default value in engine-native syntax. String
// defaults pass through verbatim so callers can supply quoted literals or
// expressions such as CURRENT_TIMESTAMP; this is part of the documented trust
// boundary of the design input.
func defaultLiteral(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
