package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arabicverse/qasida/internal/harmony"
)

// getExecutionHarmony compiles the harmony-formatted training trace for a
// captured execution and returns it, persisting the two artifacts spec
// §4.8 requires ("{id}_structured.json" and "{id}_harmony.txt") alongside
// the in-memory response.
// GET /api/executions/{id}/harmony
func (s *Server) getExecutionHarmony(w http.ResponseWriter, r *http.Request) {
	if s.harmony == nil {
		http.Error(w, "harmony compiler not configured", http.StatusServiceUnavailable)
		return
	}

	id := chi.URLParam(r, "id")
	exec, err := s.execRepo.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}

	doc, err := s.harmony.Compile(r.Context(), *exec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if s.outputDir != "" {
		if err := harmony.WriteArtifacts(s.outputDir, exec.ID, doc); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}
