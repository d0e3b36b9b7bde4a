// Command qasida runs the poem-generation pipeline's HTTP and A2A server:
// config-driven node graph, execution capture, harmony compilation, and
// scheduled batch generation. Wiring order: database → repositories →
// services → scheduler → server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/arabicverse/qasida/internal/api"
	"github.com/arabicverse/qasida/internal/config"
	"github.com/arabicverse/qasida/internal/harmony"
	"github.com/arabicverse/qasida/internal/llm"
	"github.com/arabicverse/qasida/internal/prompt"
	"github.com/arabicverse/qasida/internal/repository"
	"github.com/arabicverse/qasida/internal/schedule"
	"github.com/arabicverse/qasida/internal/services"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve()
		return
	}
	fmt.Println("qasida v0.1.0")
	fmt.Println("Usage: qasida serve")
}

func serve() {
	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	llmRegistry := buildLLMRegistry(cfg)

	var database *sqlDB
	if cfg.Database.URL != "" {
		pool, err := repository.OpenPostgres(context.Background(), cfg.Database.URL)
		if err != nil {
			slog.Warn("database unavailable, using in-memory storage", "err", err)
		} else {
			database = &sqlDB{pool: pool}
			if err := repository.EnsureRunsTable(context.Background(), pool); err != nil {
				slog.Error("run table migration failed", "err", err)
				os.Exit(1)
			}
			slog.Info("database connected", "url", cfg.Database.URL)
		}
	}

	memExecRepo := repository.NewMemoryExecutionRepository()
	var execRepo repository.ExecutionRepository = memExecRepo
	memRunRepo := repository.NewMemoryRunRepository()
	var runRepo repository.RunRepository = memRunRepo
	if database != nil {
		execRepo = repository.NewPostgresExecutionRepository(memExecRepo, database.pool)
		runRepo = repository.NewPostgresRunRepository(memRunRepo, database.pool)
	}

	pipelineRunner, err := services.NewPipelineRunner(cfg, llmRegistry, execRepo)
	if err != nil {
		slog.Error("pipeline runner setup failed", "err", err)
		os.Exit(1)
	}

	runHistorySvc := services.NewRunHistoryService(runRepo)
	runHistorySvc.CleanupOrphanedRuns(context.Background())

	retryExecutor := services.NewRetryExecutor(pipelineRunner, runHistorySvc)
	retryPolicy := llm.DefaultRetryPolicy()

	schedulerSvc := schedule.New(cfg.Scheduler, retryExecutor, retryPolicy)
	if err := schedulerSvc.Start(context.Background()); err != nil {
		slog.Error("scheduler start failed", "err", err)
		os.Exit(1)
	}
	defer schedulerSvc.Stop()

	runManager := services.NewRunManager(15 * time.Minute)
	defer runManager.Stop()

	harmonyCompiler := buildHarmonyCompiler(cfg, llmRegistry)

	baseURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	srv := api.NewServer(pipelineRunner, runHistorySvc, runManager, execRepo, harmonyCompiler, cfg.Output.Dir, baseURL)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("starting qasida server", "addr", addr, "agent_card", baseURL+"/.well-known/agent-card.json")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// buildLLMRegistry constructs one retry-wrapped adapter per configured
// provider, against this pipeline's narrow ports.LLMProvider contract.
func buildLLMRegistry(cfg *config.Config) *llm.Registry {
	registry := llm.NewRegistry()
	policy := llm.DefaultRetryPolicy()

	for name, pc := range cfg.Providers {
		var adapter llm.Provider
		switch pc.Type {
		case "gemini":
			adapter = llm.NewGeminiAdapter(name, pc.APIKey, pc.Model)
		default:
			adapter = llm.NewOpenAIAdapter(name, pc.BaseURL, pc.APIKey, pc.Model, pc.Temperature)
		}
		providerPolicy := policy
		if pc.MaxRetries > 0 {
			providerPolicy.MaxRetries = pc.MaxRetries
		}
		registry.Register(name, llm.NewRetryAdapter(adapter, providerPolicy))
	}
	return registry
}

// buildHarmonyCompiler resolves the first configured provider, in name
// order, to drive the harmony compiler's synthesis call; the compiler does
// not need a dedicated provider entry of its own.
func buildHarmonyCompiler(cfg *config.Config, registry *llm.Registry) *harmony.Compiler {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pc := cfg.Providers[name]
		if p, err := registry.Resolve(name + "/" + pc.Model); err == nil {
			return &harmony.Compiler{LLM: p, Formatter: prompt.NewFormatter()}
		}
	}
	slog.Warn("no LLM provider configured, harmony compilation endpoint will be unavailable")
	return nil
}

// sqlDB wraps the shared Postgres pool handed to both the execution and
// run repositories.
type sqlDB struct {
	pool *sql.DB
}
