package schema

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the design/synchronization layers. Callers classify
// failures with errors.Is; every returned error wraps exactly one of these.
var (
	// ErrInvalidDesign reports a malformed design, caught before any I/O.
	ErrInvalidDesign = errors.New("invalid table design")

	// ErrInvalidField reports a malformed single-field specification.
	ErrInvalidField = errors.New("invalid field definition")

	// ErrTableNotFound reports that the live catalog has no such table.
	ErrTableNotFound = errors.New("table not found")

	// ErrTableExists reports a create on a name that already has a live table.
	ErrTableExists = errors.New("table already exists")

	// ErrDesignNotFound reports a missing design record, typically because the
	// table was created outside this system.
	ErrDesignNotFound = errors.New("design record not found")

	// ErrFieldNotFound reports that the stored design has no such field.
	ErrFieldNotFound = errors.New("field not found")

	// ErrDuplicateField reports an added field whose name is already taken.
	ErrDuplicateField = errors.New("field already exists")

	// ErrSchemaOperation reports that the storage engine rejected a statement.
	ErrSchemaOperation = errors.New("schema operation failed")

	// ErrDesignPersistence reports that DDL succeeded but recording the new
	// design failed, leaving the live schema and the design store inconsistent.
	ErrDesignPersistence = errors.New("design persistence failed")
)

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}
