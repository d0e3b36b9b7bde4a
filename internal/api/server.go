// Package api exposes the poem-generation pipeline over HTTP: a REST
// surface to trigger runs, stream their progress, and fetch captured
// executions and harmony traces, plus an A2A protocol surface so the
// pipeline can be called as an agent.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arabicverse/qasida/internal/harmony"
	"github.com/arabicverse/qasida/internal/repository"
	"github.com/arabicverse/qasida/internal/services"
)

// Server holds every dependency the HTTP and A2A handlers need. Scheduled
// batch generation retries through services.RetryExecutor directly
// (internal/schedule); manual runs triggered here go straight through
// PipelineRunner so their events can be streamed live over SSE.
type Server struct {
	runner     *services.PipelineRunner
	history    *services.RunHistoryService
	runManager *services.RunManager
	execRepo   repository.ExecutionRepository
	harmony    *harmony.Compiler
	outputDir  string
	baseURL    string
}

// NewServer builds a Server. harmonyCompiler may be nil, in which case the
// harmony endpoint reports it is unavailable rather than panicking. baseURL
// is the externally reachable URL this server is served from, advertised
// in the A2A agent card.
func NewServer(
	runner *services.PipelineRunner,
	history *services.RunHistoryService,
	runManager *services.RunManager,
	execRepo repository.ExecutionRepository,
	harmonyCompiler *harmony.Compiler,
	outputDir string,
	baseURL string,
) *Server {
	return &Server{
		runner:     runner,
		history:    history,
		runManager: runManager,
		execRepo:   execRepo,
		harmony:    harmonyCompiler,
		outputDir:  outputDir,
		baseURL:    baseURL,
	}
}

// Handler builds the Chi router serving every route this server exposes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.createRun)
			r.Get("/", s.listRuns)
			r.Get("/{id}", s.getRun)
			r.Get("/{id}/events", s.streamRunEvents)
		})
		r.Route("/executions", func(r chi.Router) {
			r.Get("/", s.listExecutions)
			r.Get("/{id}", s.getExecution)
			r.Get("/{id}/harmony", s.getExecutionHarmony)
		})
	})

	s.setupA2ARoutes(r)

	return r
}
