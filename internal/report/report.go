// CLAUDE:SUMMARY Read-only HTTP status surface: live run snapshots for external reporting/UI layers.
// Package report serves run snapshots over HTTP for external reporting
// layers. Read-only: runs are controlled through the Go API or MCP tools,
// never over this surface.
package report

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/domreplay/runner"
)

// Registry tracks live machines by run ID so handlers can snapshot them.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*runner.Machine
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*runner.Machine)}
}

// Register adds a run's machine. Returns a remover for when the run is
// discarded.
func (r *Registry) Register(id string, m *runner.Machine) (remove func()) {
	r.mu.Lock()
	r.runs[id] = m
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.runs, id)
		r.mu.Unlock()
	}
}

// Get returns the machine for a run ID.
func (r *Registry) Get(id string) (*runner.Machine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.runs[id]
	return m, ok
}

// IDs returns the registered run IDs, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.runs))
	for id := range r.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Handler returns the HTTP routes:
//
//	GET /healthz      — liveness
//	GET /runs         — registered run IDs
//	GET /runs/{id}    — run snapshot
func Handler(reg *Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/runs", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"runs": reg.IDs()})
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		m, ok := reg.Get(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown run: " + id})
			return
		}
		writeJSON(w, http.StatusOK, m.Snapshot())
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("report: encode response", "error", err)
	}
}
