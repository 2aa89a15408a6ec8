package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zhsummersy/sql-generator/internal/schema"
)

type tableRequest struct {
	Table *schema.Design `json:"table"`
}

type fieldRequest struct {
	Field *schema.Field `json:"field"`
}

type executeRequest struct {
	SQL string `json:"sql"`
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req tableRequest
	if err := decodeBody(r, &req); err != nil {
		s.failMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Table == nil || req.Table.Name == "" {
		s.failMessage(w, http.StatusBadRequest, "table design is incomplete")
		return
	}

	// A repeat create is rejected rather than silently dropping the existing
	// table; PUT is the declared replace path.
	if err := s.engine.CreateOrReplace(r.Context(), req.Table, false); err != nil {
		s.fail(w, err)
		return
	}

	s.ok(w, map[string]any{
		"message": fmt.Sprintf("table %s created", req.Table.Name),
	})
}

func (s *Server) handleReplaceTable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req tableRequest
	if err := decodeBody(r, &req); err != nil {
		s.failMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Table == nil {
		s.failMessage(w, http.StatusBadRequest, "table design cannot be empty")
		return
	}

	// PUT rebuilds an existing table; creation goes through POST.
	exists, err := s.engine.Gateway().Exists(r.Context(), name)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !exists {
		s.fail(w, fmt.Errorf("%w: %s", schema.ErrTableNotFound, name))
		return
	}

	// The design is keyed to the path regardless of the body's name field.
	req.Table.Name = name

	if err := s.engine.CreateOrReplace(r.Context(), req.Table, true); err != nil {
		s.fail(w, err)
		return
	}

	s.ok(w, map[string]any{
		"message": fmt.Sprintf("table %s updated", name),
	})
}

func (s *Server) handleDropTable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := s.engine.Drop(r.Context(), name); err != nil {
		s.fail(w, err)
		return
	}

	s.ok(w, map[string]any{
		"message": fmt.Sprintf("table %s dropped", name),
	})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	structures, err := s.engine.DescribeAll(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	s.ok(w, map[string]any{"tables": structures})
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	detail, err := s.engine.Detail(r.Context(), r.PathValue("name"))
	if err != nil {
		s.fail(w, err)
		return
	}

	s.ok(w, map[string]any{
		"table":  detail.Structure,
		"design": detail.Design,
	})
}

func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req fieldRequest
	if err := decodeBody(r, &req); err != nil {
		s.failMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Field == nil || req.Field.Name == "" {
		s.failMessage(w, http.StatusBadRequest, "field definition is incomplete")
		return
	}

	if err := s.engine.AddField(r.Context(), name, *req.Field); err != nil {
		s.fail(w, err)
		return
	}

	s.ok(w, map[string]any{
		"message": fmt.Sprintf("field %s added", req.Field.Name),
	})
}

func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	fieldName := r.PathValue("field")

	var req fieldRequest
	if err := decodeBody(r, &req); err != nil {
		s.failMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Field == nil {
		s.failMessage(w, http.StatusBadRequest, "field definition cannot be empty")
		return
	}

	if err := s.engine.UpdateField(r.Context(), name, fieldName, *req.Field); err != nil {
		s.fail(w, err)
		return
	}

	s.ok(w, map[string]any{
		"message": fmt.Sprintf("field %s updated", fieldName),
	})
}

func (s *Server) handleRemoveField(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	fieldName := r.PathValue("field")

	if err := s.engine.RemoveField(r.Context(), name, fieldName); err != nil {
		s.fail(w, err)
		return
	}

	s.ok(w, map[string]any{
		"message": fmt.Sprintf("field %s removed", fieldName),
	})
}

// handleExecuteSQL passes the statement to the engine verbatim. There is no
// allow-listing here; this endpoint is an unrestricted escape hatch and is
// documented as such.
func (s *Server) handleExecuteSQL(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeBody(r, &req); err != nil {
		s.failMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SQL == "" {
		s.failMessage(w, http.StatusBadRequest, "sql statement cannot be empty")
		return
	}

	result, err := s.engine.Gateway().Execute(r.Context(), req.SQL)
	if err != nil {
		s.failMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	if result.Query != nil {
		s.ok(w, map[string]any{
			"columns": result.Query.Columns,
			"results": result.Query.Rows,
		})
		return
	}

	s.ok(w, map[string]any{
		"message":       "statement executed",
		"rows_affected": result.RowsAffected,
	})
}

func (s *Server) handleDatabaseStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.Status(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	s.ok(w, map[string]any{
		"tables_count":  status.TablesCount,
		"tables":        status.Tables,
		"database_size": status.DatabaseSize,
		"last_updated":  status.LastUpdated.Format(time.RFC3339),
	})
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func (s *Server) ok(w http.ResponseWriter, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.failMessage(w, errorStatus(err), err.Error())
}

func (s *Server) failMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// errorStatus maps engine error kinds onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, schema.ErrInvalidDesign),
		errors.Is(err, schema.ErrInvalidField),
		errors.Is(err, schema.ErrDuplicateField),
		errors.Is(err, schema.ErrSchemaOperation):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrTableNotFound),
		errors.Is(err, schema.ErrDesignNotFound),
		errors.Is(err, schema.ErrFieldNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrTableExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
