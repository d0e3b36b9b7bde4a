package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/arabicverse/qasida/internal/capture"
	"github.com/arabicverse/qasida/internal/config"
	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/knowledge"
	"github.com/arabicverse/qasida/internal/llm"
	"github.com/arabicverse/qasida/internal/nodes"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
	"github.com/arabicverse/qasida/internal/prompt"
	"github.com/arabicverse/qasida/internal/refiners"
	"github.com/arabicverse/qasida/internal/repository"
)

// PipelineRunner wires config, the node registry, the engine, capture,
// and the execution repository into the single operation the rest of the
// service layer depends on: run the pipeline once for a prompt and
// return the finished, persisted Execution. It implements
// services.PipelineExecutor.
type PipelineRunner struct {
	cfg       *config.Config
	registry  *engine.Registry
	eventBus  *engine.EventBus
	sessions  *engine.SessionManager
	recorder  *capture.Recorder
	runner    *engine.Runner
	execRepo  repository.ExecutionRepository
	outputDir string
}

// NewPipelineRunner builds the full node graph described by cfg.Pipeline,
// binding each node type to an executor constructed from llmRegistry,
// formatter, and the static knowledge bases, then wires engine.Runner's
// session hook to recorder so every run's Execution is pre-registered
// under the exact session ID the runner generates (the chicken-and-egg
// fix engine.Runner.SetSessionHook exists for).
func NewPipelineRunner(cfg *config.Config, llmRegistry *llm.Registry, execRepo repository.ExecutionRepository) (*PipelineRunner, error) {
	formatter := prompt.NewFormatter()
	meters := knowledge.NewMeterBook()
	rhymes := knowledge.NewRhymeBook()

	registry := engine.NewRegistry()
	if err := registerNodes(registry, cfg, llmRegistry, formatter, meters, rhymes); err != nil {
		return nil, err
	}

	eventBus := engine.NewEventBus()
	sessions := engine.NewSessionManager()
	recorder := capture.NewRecorder()
	runner := engine.NewRunner(registry, eventBus, sessions, recorder)
	runner.SetSessionHook(func(sessionID string, initialContext map[string]any) {
		userPrompt, _ := initialContext["user_prompt"].(string)
		recorder.StartExecution(sessionID, userPrompt)

		if onEvent, ok := initialContext[onEventContextKey].(func(engine.Event)); ok && onEvent != nil {
			eventBus.Subscribe(func(ev engine.Event) {
				if ev.SessionID == sessionID {
					onEvent(ev)
				}
			})
		}
	})

	return &PipelineRunner{
		cfg:       cfg,
		registry:  registry,
		eventBus:  eventBus,
		sessions:  sessions,
		recorder:  recorder,
		runner:    runner,
		execRepo:  execRepo,
		outputDir: cfg.Output.Dir,
	}, nil
}

// EventBus exposes the runner's event bus so callers can watch every run's
// progress (e.g. for logging); RunWithEvents is the per-run alternative
// the API layer uses to drive SSE without cross-talk between concurrent
// runs.
func (p *PipelineRunner) EventBus() *engine.EventBus { return p.eventBus }

// OutputDir returns the directory per-execution artifacts are written to.
func (p *PipelineRunner) OutputDir() string { return p.outputDir }

// onEventContextKey smuggles a per-call event callback through Run's
// initialContext map so the session hook — the only place that learns a
// run's session ID before any event for it is published — can bind a
// session-filtered subscription for this call alone. It is never read by
// any node and is not a declared Requires key, so it never reaches the
// capture subsystem's serialized inputs.
const onEventContextKey = "__pipeline_runner_on_event"

// Run executes the configured pipeline once for userPrompt, persists the
// captured Execution, and returns it. The Execution's Status is "failed"
// and its error surfaces via the returned error when any node fails; the
// Execution itself is still persisted so the partial trace isn't lost.
func (p *PipelineRunner) Run(ctx context.Context, userPrompt string) (*poem.Execution, error) {
	return p.run(ctx, userPrompt, nil)
}

// RunWithEvents is Run plus a callback invoked synchronously for every
// engine.Event this specific run publishes (and no other concurrent
// run's), for streaming live progress over SSE (internal/api/run.go).
func (p *PipelineRunner) RunWithEvents(ctx context.Context, userPrompt string, onEvent func(engine.Event)) (*poem.Execution, error) {
	return p.run(ctx, userPrompt, onEvent)
}

func (p *PipelineRunner) run(ctx context.Context, userPrompt string, onEvent func(engine.Event)) (*poem.Execution, error) {
	initial := map[string]any{"user_prompt": userPrompt}
	if onEvent != nil {
		initial[onEventContextKey] = onEvent
	}

	sess, runErr := p.runner.Run(ctx, &p.cfg.Pipeline, initial)

	var sessionID string
	if sess != nil {
		sessionID = sess.ID
	}

	exec, ok := p.recorder.Execution(sessionID)
	if !ok {
		return nil, fmt.Errorf("pipeline runner: no execution recorded for session %q", sessionID)
	}

	status := "completed"
	var finalPoem *poem.Poem
	var finalQuality *poem.Quality
	if runErr != nil {
		status = "failed"
	} else if sess != nil {
		if pv, ok := sess.Context["poem"].(poem.Poem); ok {
			finalPoem = &pv
		}
		if qv, ok := sess.Context["quality"].(poem.Quality); ok {
			finalQuality = &qv
		}
	}
	p.recorder.Finish(sessionID, finalPoem, finalQuality, status)

	exec, _ = p.recorder.Execution(sessionID)
	if err := p.execRepo.Create(ctx, exec); err != nil {
		return exec, fmt.Errorf("persisting execution: %w", err)
	}
	if p.outputDir != "" {
		if err := capture.WriteExecutionFile(p.outputDir, exec); err != nil {
			slog.Warn("pipeline runner: failed to write execution file", "execution_id", exec.ID, "err", err)
		}
	}

	if runErr != nil {
		return exec, runErr
	}
	return exec, nil
}

func registerNodes(registry *engine.Registry, cfg *config.Config, llmRegistry *llm.Registry, formatter ports.PromptFormatter, meters ports.MeterKnowledgeBase, rhymes ports.RhymeKnowledgeBase) error {
	generatorLLM, generatorProvider, generatorModel, err := resolveNodeLLM(cfg, llmRegistry, "generator")
	if err != nil {
		return err
	}
	parserLLM, _, _, err := resolveNodeLLM(cfg, llmRegistry, "constraint_parser")
	if err != nil {
		return err
	}
	meterLLM, _, _, err := resolveNodeLLM(cfg, llmRegistry, "meter_resolver")
	if err != nil {
		return err
	}
	rhymeLLM, _, _, err := resolveNodeLLM(cfg, llmRegistry, "rhyme_resolver")
	if err != nil {
		return err
	}
	evaluatorLLM, _, _, err := resolveNodeLLM(cfg, llmRegistry, "evaluator")
	if err != nil {
		return err
	}
	refinerLLM, _, _, err := resolveNodeLLM(cfg, llmRegistry, "refiner_chain")
	if err != nil {
		return err
	}

	registry.Register(engine.NodeTypeConstraintParser, &nodes.ConstraintParser{
		LLM: parserLLM, Formatter: formatter, Meters: meters, Rhymes: rhymes,
	})
	registry.Register(engine.NodeTypeMeterResolver, &nodes.MeterResolver{
		LLM: meterLLM, Formatter: formatter, Meters: meters,
	})
	registry.Register(engine.NodeTypeRhymeResolver, &nodes.RhymeResolver{
		LLM: rhymeLLM, Formatter: formatter, Rhymes: rhymes,
	})
	registry.Register(engine.NodeTypeGenerator, &nodes.Generator{
		LLM: generatorLLM, Formatter: formatter, Provider: generatorProvider, Model: generatorModel,
	})

	weights := nodes.DimensionWeights{
		Prosody:    cfg.Evaluation.Weights.Prosody,
		Rhyme:      cfg.Evaluation.Weights.Rhyme,
		LineCount:  cfg.Evaluation.Weights.LineCount,
		Diacritics: cfg.Evaluation.Weights.Diacritics,
	}
	evaluator := &nodes.Evaluator{
		LLM: evaluatorLLM, Formatter: formatter, Meters: meters,
		Weights:         weights,
		AcceptThreshold: cfg.Evaluation.AcceptThreshold,
		MinProsody:      cfg.Evaluation.MinProsody,
		MinRhyme:        cfg.Evaluation.MinRhyme,
	}
	registry.Register(engine.NodeTypeEvaluator, evaluator)

	registry.Register(engine.NodeTypeRefinerChain, &nodes.RefinerChain{
		Refiners: []refiners.Refiner{
			&refiners.ProsodyRefiner{LLM: refinerLLM, Formatter: formatter},
			&refiners.RhymeRefiner{LLM: refinerLLM, Formatter: formatter},
			&refiners.LineCountRefiner{LLM: refinerLLM, Formatter: formatter},
			&refiners.DiacriticsRefiner{LLM: refinerLLM, Formatter: formatter},
		},
		Evaluator:     evaluator,
		MaxIterations: cfg.Refinement.MaxIterations,
		TargetQuality: cfg.Refinement.TargetQuality,
		Epsilon:       cfg.Refinement.Epsilon,
		ExitWhen:      cfg.Refinement.ExitWhen,
	})

	return nil
}

// resolveNodeLLM picks the "provider/model" ID for nodeID. config.Config
// doesn't carry a per-node model map today, so every node shares the
// first configured provider, in name order, that resolves; nodeID only
// appears in the error when none does.
func resolveNodeLLM(cfg *config.Config, reg *llm.Registry, nodeID string) (ports.LLMProvider, string, string, error) {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pc := cfg.Providers[name]
		p, err := reg.Resolve(name + "/" + pc.Model)
		if err != nil {
			continue
		}
		return p, name, pc.Model, nil
	}
	return nil, "", "", fmt.Errorf("no LLM provider configured for node %q", nodeID)
}
