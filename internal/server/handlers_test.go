package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhsummersy/sql-generator/internal/config"
	"github.com/zhsummersy/sql-generator/internal/database"
	"github.com/zhsummersy/sql-generator/internal/designer"
	"github.com/zhsummersy/sql-generator/internal/designstore"
	"github.com/zhsummersy/sql-generator/internal/server"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Engine.Path = filepath.Join(dir, "engine.db")
	cfg.DesignStore.Path = filepath.Join(dir, "designs.db")

	log := logger.NewLogger(false)

	conn, err := database.NewConnection(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store, err := designstore.New(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	engine := designer.New(conn, store, designer.Options{Strategy: cfg.Strategy, Logger: log})

	ts := httptest.NewServer(server.New(cfg.Server.Listen, engine, log).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func usersPayload() map[string]any {
	return map[string]any{
		"table": map[string]any{
			"name": "users",
			"fields": []map[string]any{
				{"name": "id", "type": "INTEGER", "primary": true},
				{"name": "email", "type": "TEXT", "unique": true, "nullable": false},
			},
		},
	}
}

func TestCreateTableEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodPost, "/api/tables", usersPayload())
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = doJSON(t, ts, http.MethodGet, "/api/tables/users", nil)
	assert.Equal(t, http.StatusOK, status)
	table := body["table"].(map[string]any)
	columns := table["columns"].([]any)
	require.Len(t, columns, 2)
	assert.NotNil(t, body["design"])
}

func TestCreateTableConflicts(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, ts, http.MethodPost, "/api/tables", usersPayload())
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, ts, http.MethodPost, "/api/tables", usersPayload())
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
}

func TestCreateTableRejectsIncompleteDesign(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodPost, "/api/tables", map[string]any{"table": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestReplaceTableEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, ts, http.MethodPost, "/api/tables", usersPayload())
	require.Equal(t, http.StatusOK, status)

	replacement := map[string]any{
		"table": map[string]any{
			"fields": []map[string]any{
				{"name": "id", "type": "INTEGER", "primary": true},
				{"name": "name", "type": "TEXT"},
			},
		},
	}
	status, _ = doJSON(t, ts, http.MethodPut, "/api/tables/users", replacement)
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, ts, http.MethodGet, "/api/tables/users", nil)
	require.Equal(t, http.StatusOK, status)
	table := body["table"].(map[string]any)
	columns := table["columns"].([]any)
	require.Len(t, columns, 2)
	second := columns[1].(map[string]any)
	assert.Equal(t, "name", second["name"])
}

func TestReplaceMissingTableNotFound(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodPut, "/api/tables/ghost", usersPayload())
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])

	status, _ = doJSON(t, ts, http.MethodGet, "/api/tables/ghost", nil)
	assert.Equal(t, http.StatusNotFound, status, "PUT on a missing table must not create it")
}

func TestListTablesEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodGet, "/api/tables", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["tables"])

	status, _ = doJSON(t, ts, http.MethodPost, "/api/tables", usersPayload())
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, ts, http.MethodGet, "/api/tables", nil)
	require.Equal(t, http.StatusOK, status)
	tables := body["tables"].([]any)
	require.Len(t, tables, 1)
}

func TestFieldEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, ts, http.MethodPost, "/api/tables", usersPayload())
	require.Equal(t, http.StatusOK, status)

	addField := map[string]any{
		"field": map[string]any{"name": "age", "type": "INTEGER", "default": 0},
	}
	status, _ = doJSON(t, ts, http.MethodPost, "/api/tables/users/fields", addField)
	require.Equal(t, http.StatusOK, status)

	updateField := map[string]any{
		"field": map[string]any{"name": "age", "type": "BIGINT"},
	}
	status, _ = doJSON(t, ts, http.MethodPut, "/api/tables/users/fields/age", updateField)
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, ts, http.MethodGet, "/api/tables/users", nil)
	require.Equal(t, http.StatusOK, status)
	table := body["table"].(map[string]any)
	columns := table["columns"].([]any)
	require.Len(t, columns, 3)
	third := columns[2].(map[string]any)
	assert.Equal(t, "age", third["name"])
	assert.Equal(t, "BIGINT", third["type"])

	status, _ = doJSON(t, ts, http.MethodDelete, "/api/tables/users/fields/age", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, ts, http.MethodGet, "/api/tables/users", nil)
	require.Equal(t, http.StatusOK, status)
	table = body["table"].(map[string]any)
	assert.Len(t, table["columns"].([]any), 2)
}

func TestFieldEndpointErrors(t *testing.T) {
	ts := newTestServer(t)

	addField := map[string]any{"field": map[string]any{"name": "x", "type": "TEXT"}}
	status, _ := doJSON(t, ts, http.MethodPost, "/api/tables/missing/fields", addField)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, ts, http.MethodDelete, "/api/tables/missing/fields/x", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDropTableEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, ts, http.MethodPost, "/api/tables", usersPayload())
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, ts, http.MethodDelete, "/api/tables/users", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, ts, http.MethodGet, "/api/tables/users", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestExecuteSQLEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, ts, http.MethodPost, "/api/tables", usersPayload())
	require.Equal(t, http.StatusOK, status)

	insert := map[string]any{"sql": `INSERT INTO users (id, email) VALUES (1, 'a@example.com')`}
	status, body := doJSON(t, ts, http.MethodPost, "/api/execute-sql", insert)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["rows_affected"])

	query := map[string]any{"sql": `SELECT * FROM users`}
	status, body = doJSON(t, ts, http.MethodPost, "/api/execute-sql", query)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"id", "email"}, body["columns"])
	results := body["results"].([]any)
	require.Len(t, results, 1)

	bad := map[string]any{"sql": `SELEKT 1`}
	status, body = doJSON(t, ts, http.MethodPost, "/api/execute-sql", bad)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
}

func TestDatabaseStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, _ := doJSON(t, ts, http.MethodPost, "/api/tables", usersPayload())
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, ts, http.MethodGet, "/api/database-status", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["tables_count"])
	assert.Equal(t, []any{"users"}, body["tables"])
	assert.Greater(t, body["database_size"], float64(0))
	assert.NotEmpty(t, body["last_updated"])
}
