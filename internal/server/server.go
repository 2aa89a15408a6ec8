// Package server exposes the synchronization engine over HTTP. Request and
// response bodies are the JSON envelope the service has always spoken:
// {"success": bool} plus an operation-specific payload, "error" on failure.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/zhsummersy/sql-generator/internal/designer"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

type Server struct {
	engine *designer.Engine
	log    *logger.Logger
	httpd  *http.Server
}

func New(listen string, engine *designer.Engine, log *logger.Logger) *Server {
	s := &Server{
		engine: engine,
		log:    log,
	}

	s.httpd = &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler builds the route table. Exposed separately so tests can drive the
// server through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/tables", s.handleCreateTable)
	mux.HandleFunc("GET /api/tables", s.handleListTables)
	mux.HandleFunc("GET /api/tables/{name}", s.handleGetTable)
	mux.HandleFunc("PUT /api/tables/{name}", s.handleReplaceTable)
	mux.HandleFunc("DELETE /api/tables/{name}", s.handleDropTable)
	mux.HandleFunc("POST /api/tables/{name}/fields", s.handleAddField)
	mux.HandleFunc("PUT /api/tables/{name}/fields/{field}", s.handleUpdateField)
	mux.HandleFunc("DELETE /api/tables/{name}/fields/{field}", s.handleRemoveField)
	mux.HandleFunc("POST /api/execute-sql", s.handleExecuteSQL)
	mux.HandleFunc("GET /api/database-status", s.handleDatabaseStatus)

	return mux
}

func (s *Server) ListenAndServe() error {
	s.log.WithComponent("server").Infof("listening on %s", s.httpd.Addr)
	return s.httpd.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpd.Shutdown(ctx)
}
