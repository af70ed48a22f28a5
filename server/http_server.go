// Package server exposes the minimal HTTP status surface this daemon
// carries ambiently: liveness and a counter dump. The teacher's
// server/http_server.go built a full log-search JSON API over its single
// SQLite table (pagination, filters, facets); that surface is the
// out-of-scope web search UI per spec.md §1's Non-goals, so only its
// router-construction and CORS idiom survive here, generalized down to
// /healthz and /metrics per spec.md §9's open question about exposing
// per-kind counters.
package server

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"syslogd/config"
)

// Supervisor is the narrow slice of supervisor.Supervisor the HTTP surface
// needs: enough to report counters without importing the supervisor
// package's full lifecycle surface back into server, avoiding an import
// cycle (main wires supervisor -> server, not the other way around).
type Supervisor interface {
	Counters() Counters
}

// Counters is the read-only snapshot of the daemon's atomic counters,
// spec.md §5 and §9.
type Counters struct {
	Received       int64
	Parsed         int64
	DroppedParse   int64
	Submitted      int64
	DroppedQueue   int64
	BatchesFlushed int64
	BatchErrors    int64
	RecordsWritten int64
}

// Server is the ambient HTTP status surface.
type Server struct {
	addr string
	sup  Supervisor
	srv  *http.Server
}

// New builds a Server bound to the supervisor. It does not listen until
// Start is called. cfg is accepted for symmetry with the rest of the
// daemon's wiring even though the status surface's own port
// (SLOGGO_STATUS_PORT) isn't part of spec.md §6's core configuration
// table.
func New(cfg *config.Config, sup Supervisor) *Server {
	port := os.Getenv("SLOGGO_STATUS_PORT")
	if port == "" {
		port = "8080"
	}
	return &Server{addr: ":" + port, sup: sup}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		c := s.sup.Counters()
		fmt.Fprintf(w, "received=%d\n", c.Received)
		fmt.Fprintf(w, "parsed=%d\n", c.Parsed)
		fmt.Fprintf(w, "dropped_parse=%d\n", c.DroppedParse)
		fmt.Fprintf(w, "submitted=%d\n", c.Submitted)
		fmt.Fprintf(w, "dropped_queue=%d\n", c.DroppedQueue)
		fmt.Fprintf(w, "batches_flushed=%d\n", c.BatchesFlushed)
		fmt.Fprintf(w, "batch_errors=%d\n", c.BatchErrors)
		fmt.Fprintf(w, "records_written=%d\n", c.RecordsWritten)
	})

	return mux
}

// Start runs the HTTP server until it errors or Shutdown is called.
func (s *Server) Start() {
	s.srv = &http.Server{Addr: s.addr, Handler: s.routes()}
	log.Printf("status server listening on %s", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("status server error: %v", err)
	}
}

// Shutdown closes the HTTP server. Idempotent.
func (s *Server) Shutdown() {
	if s.srv != nil {
		s.srv.Close()
	}
}
