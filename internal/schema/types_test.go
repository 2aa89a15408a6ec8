package schema_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhsummersy/sql-generator/internal/schema"
)

func TestFieldNullableDefaultsTrue(t *testing.T) {
	var field schema.Field
	require.NoError(t, json.Unmarshal([]byte(`{"name":"id","type":"INTEGER"}`), &field))
	assert.True(t, field.Nullable)

	require.NoError(t, json.Unmarshal([]byte(`{"name":"id","type":"INTEGER","nullable":false}`), &field))
	assert.False(t, field.Nullable)
}

func TestDesignUnmarshal(t *testing.T) {
	payload := `{
		"name": "users",
		"comment": "account table",
		"fields": [
			{"name": "id", "type": "INTEGER", "primary": true},
			{"name": "email", "type": "TEXT", "unique": true, "nullable": false},
			{"name": "age", "type": "INTEGER", "default": 0}
		]
	}`

	var design schema.Design
	require.NoError(t, json.Unmarshal([]byte(payload), &design))

	assert.Equal(t, "users", design.Name)
	assert.Equal(t, "account table", design.Comment)
	require.Len(t, design.Fields, 3)
	assert.True(t, design.Fields[0].Primary)
	assert.True(t, design.Fields[0].Nullable, "omitted nullable should default to true")
	assert.False(t, design.Fields[1].Nullable)
	assert.Equal(t, float64(0), design.Fields[2].Default)
}

func TestDesignValidate(t *testing.T) {
	valid := &schema.Design{
		Name:   "users",
		Fields: []schema.Field{{Name: "id", Type: "INTEGER"}},
	}
	assert.NoError(t, valid.Validate())

	assert.ErrorIs(t, (&schema.Design{Name: "users"}).Validate(), schema.ErrInvalidDesign)
}

func TestDesignFieldHelpers(t *testing.T) {
	design := &schema.Design{
		Name: "t",
		Fields: []schema.Field{
			{Name: "a", Type: "INTEGER", Primary: true},
			{Name: "b", Type: "TEXT"},
			{Name: "c", Type: "INTEGER", Primary: true},
		},
	}

	assert.Equal(t, 1, design.FieldIndex("b"))
	assert.Equal(t, -1, design.FieldIndex("missing"))
	assert.Equal(t, []string{"a", "c"}, design.PrimaryFields())
}
