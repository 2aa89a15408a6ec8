package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhsummersy/sql-generator/internal/database"
	"github.com/zhsummersy/sql-generator/internal/schema"
)

func newBuilder(t *testing.T) *schema.Builder {
	t.Helper()

	dialect, err := database.DialectFor("sqlite")
	require.NoError(t, err)
	return schema.NewBuilder(dialect)
}

func TestBuildCreate(t *testing.T) {
	builder := newBuilder(t)

	design := &schema.Design{
		Name: "users",
		Fields: []schema.Field{
			{Name: "id", Type: "INTEGER", Primary: true},
			{Name: "email", Type: "TEXT", Unique: true},
		},
	}

	stmt, err := builder.BuildCreate(design)
	require.NoError(t, err)
	assert.Equal(t,
		`CREATE TABLE "users" ("id" INTEGER NOT NULL, "email" TEXT NOT NULL UNIQUE, PRIMARY KEY ("id"))`,
		stmt)
}

func TestBuildCreateCompositeKey(t *testing.T) {
	builder := newBuilder(t)

	design := &schema.Design{
		Name: "memberships",
		Fields: []schema.Field{
			{Name: "user_id", Type: "INTEGER", Primary: true},
			{Name: "group_id", Type: "INTEGER", Primary: true},
			{Name: "role", Type: "TEXT", Nullable: true},
		},
	}

	stmt, err := builder.BuildCreate(design)
	require.NoError(t, err)
	assert.Contains(t, stmt, `PRIMARY KEY ("user_id", "group_id")`)
	// All primary fields aggregate into one composite clause at the end.
	assert.Equal(t, 1, countOccurrences(stmt, "PRIMARY KEY"))
}

func TestBuildCreateClauseOrder(t *testing.T) {
	builder := newBuilder(t)

	design := &schema.Design{
		Name: "accounts",
		Fields: []schema.Field{
			{Name: "handle", Type: "VARCHAR", Length: 64, Unique: true, Default: "'guest'"},
		},
	}

	stmt, err := builder.BuildCreate(design)
	require.NoError(t, err)
	assert.Equal(t,
		`CREATE TABLE "accounts" ("handle" VARCHAR(64) NOT NULL UNIQUE DEFAULT 'guest')`,
		stmt)
}

func TestBuildCreateDefaultLiterals(t *testing.T) {
	builder := newBuilder(t)

	design := &schema.Design{
		Name: "settings",
		Fields: []schema.Field{
			{Name: "retries", Type: "INTEGER", Nullable: true, Default: float64(3)},
			{Name: "enabled", Type: "BOOLEAN", Nullable: true, Default: true},
			{Name: "created", Type: "TIMESTAMP", Nullable: true, Default: "CURRENT_TIMESTAMP"},
		},
	}

	stmt, err := builder.BuildCreate(design)
	require.NoError(t, err)
	assert.Contains(t, stmt, `"retries" INTEGER DEFAULT 3`)
	assert.Contains(t, stmt, `"enabled" BOOLEAN DEFAULT TRUE`)
	assert.Contains(t, stmt, `"created" TIMESTAMP DEFAULT CURRENT_TIMESTAMP`)
}

func TestBuildCreateRejectsInvalidDesigns(t *testing.T) {
	builder := newBuilder(t)

	cases := []struct {
		name   string
		design *schema.Design
	}{
		{"no fields", &schema.Design{Name: "empty"}},
		{"missing table name", &schema.Design{Fields: []schema.Field{{Name: "id", Type: "INTEGER"}}}},
		{"empty field name", &schema.Design{Name: "t", Fields: []schema.Field{{Type: "INTEGER"}}}},
		{"duplicate field name", &schema.Design{Name: "t", Fields: []schema.Field{
			{Name: "id", Type: "INTEGER"},
			{Name: "id", Type: "TEXT"},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := builder.BuildCreate(tc.design)
			assert.ErrorIs(t, err, schema.ErrInvalidDesign)
		})
	}
}

func TestBuildAddColumn(t *testing.T) {
	builder := newBuilder(t)

	stmt, err := builder.BuildAddColumn("users", schema.Field{
		Name:     "age",
		Type:     "INTEGER",
		Nullable: true,
		Default:  float64(0),
	})
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "age" INTEGER DEFAULT 0`, stmt)
}

func TestBuildAddColumnRejectsEmptyName(t *testing.T) {
	builder := newBuilder(t)

	_, err := builder.BuildAddColumn("users", schema.Field{Type: "INTEGER"})
	assert.ErrorIs(t, err, schema.ErrInvalidField)
}

func TestBuildDropColumn(t *testing.T) {
	builder := newBuilder(t)

	stmt, err := builder.BuildDropColumn("users", "age")
	require.NoError(t, err)
	assert.Equal(t, `ALTER TABLE "users" DROP COLUMN "age"`, stmt)

	_, err = builder.BuildDropColumn("users", "")
	assert.ErrorIs(t, err, schema.ErrInvalidField)
}

func TestBuildDropTable(t *testing.T) {
	builder := newBuilder(t)
	assert.Equal(t, `DROP TABLE "users"`, builder.BuildDropTable("users"))
}

func TestQuotingEmbeddedQuotes(t *testing.T) {
	builder := newBuilder(t)

	stmt, err := builder.BuildCreate(&schema.Design{
		Name:   `odd"name`,
		Fields: []schema.Field{{Name: "id", Type: "INTEGER", Nullable: true}},
	})
	require.NoError(t, err)
	assert.Contains(t, stmt, `CREATE TABLE "odd""name"`)
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
