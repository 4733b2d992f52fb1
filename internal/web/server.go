// Package web provides a read-only dashboard over the run snapshot and the
// run journal.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/sitesmith/sitesmith/internal/journal"
	"github.com/sitesmith/sitesmith/internal/state"
)

// Server serves the dashboard. It only ever reads: the orchestrator is the
// sole writer of both the snapshot and the journal.
type Server struct {
	snapshots *state.Store
	runs      *journal.Store
}

// NewServer creates a dashboard server. runs may be nil when no journal
// database exists yet.
func NewServer(snapshots *state.Store, runs *journal.Store) *Server {
	return &Server{snapshots: snapshots, runs: runs}
}

//go:embed templates/*.html
var templatesFS embed.FS

// Routes returns the dashboard router.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	return mux
}

type indexData struct {
	State *state.ProjectState
	Runs  []journal.Run
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := indexData{}
	st, err := s.snapshots.Load()
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data.State = st
	data.Runs = s.listRuns(r.Context())

	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	st, err := s.snapshots.Load()
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			http.Error(w, "no snapshot", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.listRuns(r.Context()))
}

func (s *Server) listRuns(ctx context.Context) []journal.Run {
	if s.runs == nil {
		return nil
	}
	runs, err := s.runs.ListRuns(ctx, 20)
	if err != nil {
		return nil
	}
	return runs
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
