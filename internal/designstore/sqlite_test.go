package designstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhsummersy/sql-generator/internal/config"
	"github.com/zhsummersy/sql-generator/internal/designstore"
	"github.com/zhsummersy/sql-generator/internal/schema"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

func newTestStore(t *testing.T) designstore.Store {
	t.Helper()

	cfg := config.Default()
	cfg.DesignStore.Path = filepath.Join(t.TempDir(), "designs.db")

	store, err := designstore.New(cfg, logger.NewLogger(false))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func userDesign() *schema.Design {
	return &schema.Design{
		Name:    "users",
		Comment: "account table",
		Fields: []schema.Field{
			{Name: "id", Type: "INTEGER", Primary: true},
			{Name: "email", Type: "TEXT", Unique: true},
		},
	}
}

func TestPutAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, userDesign()))

	record, err := store.Get(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, "users", record.TableName)
	assert.Equal(t, "account table", record.Design.Comment)
	require.Len(t, record.Design.Fields, 2)
	assert.Equal(t, "id", record.Design.Fields[0].Name)
	assert.False(t, record.CreatedAt.IsZero())
	assert.False(t, record.UpdatedAt.IsZero())
	assert.NotEmpty(t, record.Fingerprint)
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, schema.ErrDesignNotFound)
}

func TestPutUnchangedDesignIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, userDesign()))
	first, err := store.Get(ctx, "users")
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, userDesign()))
	second, err := store.Get(ctx, "users")
	require.NoError(t, err)

	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "identical design should not bump updated_at")
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestPutReplacesChangedDesign(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, userDesign()))
	first, err := store.Get(ctx, "users")
	require.NoError(t, err)

	changed := userDesign()
	changed.Fields = append(changed.Fields, schema.Field{Name: "age", Type: "INTEGER", Nullable: true})
	require.NoError(t, store.Put(ctx, changed))

	second, err := store.Get(ctx, "users")
	require.NoError(t, err)
	require.Len(t, second.Design.Fields, 3)
	assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.CreatedAt, second.CreatedAt, "created_at survives updates")
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, userDesign()))
	require.NoError(t, store.Delete(ctx, "users"))

	_, err := store.Get(ctx, "users")
	assert.ErrorIs(t, err, schema.ErrDesignNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "users"), schema.ErrDesignNotFound)
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, userDesign()))
	other := &schema.Design{Name: "audit", Fields: []schema.Field{{Name: "at", Type: "TIMESTAMP"}}}
	require.NoError(t, store.Put(ctx, other))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "audit", records[0].TableName)
	assert.Equal(t, "users", records[1].TableName)
}

func TestFingerprintStability(t *testing.T) {
	a := designstore.Fingerprint(userDesign())
	b := designstore.Fingerprint(userDesign())
	assert.Equal(t, a, b)

	changed := userDesign()
	changed.Fields[0].Type = "BIGINT"
	assert.NotEqual(t, a, designstore.Fingerprint(changed))
}
