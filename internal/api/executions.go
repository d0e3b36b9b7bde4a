package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// listExecutions returns captured executions with pagination.
// GET /api/executions?limit=20&offset=0&status=
func (s *Server) listExecutions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	status := r.URL.Query().Get("status")

	execs, total, err := s.execRepo.ListAll(r.Context(), limit, offset, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"executions": execs, "total": total})
}

// getExecution returns a single captured execution's full call trace.
// GET /api/executions/{id}
func (s *Server) getExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exec, err := s.execRepo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exec)
}
