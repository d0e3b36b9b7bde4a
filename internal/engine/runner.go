package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arabicverse/qasida/internal/dag"
	"github.com/arabicverse/qasida/internal/poem"
)

// Runner executes a PipelineDefinition's DAG to completion: a single
// pipeline run is single-threaded in the sense that no two nodes race to
// mutate the same context key, but independent branches of the graph run
// concurrently, each waiting only on its own parents.
type Runner struct {
	registry    *Registry
	eventBus    *EventBus
	sessions    *SessionManager
	recorder    Recorder
	sessionHook func(sessionID string, initialContext map[string]any)
}

// NewRunner builds a Runner. recorder may be nil, in which case node
// execution is not captured.
func NewRunner(registry *Registry, eventBus *EventBus, sessions *SessionManager, recorder Recorder) *Runner {
	return &Runner{registry: registry, eventBus: eventBus, sessions: sessions, recorder: recorder}
}

// SetSessionHook registers a callback invoked synchronously immediately
// after a run's session is created, before any node executes. The capture
// subsystem uses this to register an Execution under the session's ID
// (Recorder.Begin is a no-op for a session with no registered Execution),
// since the session ID itself isn't known until Run creates it.
func (r *Runner) SetSessionHook(hook func(sessionID string, initialContext map[string]any)) {
	r.sessionHook = hook
}

// Run executes def against a fresh session seeded with initialContext
// (typically {"user_prompt": ..., "original_prompt": ...}). It blocks
// until every node has run, one node has failed, or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, def *PipelineDefinition, initialContext map[string]any) (*Session, error) {
	if err := r.registry.Validate(def); err != nil {
		return nil, err
	}
	graph, err := dag.Build(def)
	if err != nil {
		return nil, &poem.ConfigError{Message: err.Error()}
	}

	sess := r.sessions.Create(def.Name, initialContext)
	if r.sessionHook != nil {
		r.sessionHook(sess.ID, initialContext)
	}

	r.eventBus.Publish(Event{
		ID: poem.GenerateID("ev"), RunID: def.Name, SessionID: sess.ID,
		Type: EventNodeStarted, Payload: map[string]any{"pipeline": def.Name}, Timestamp: time.Now(),
	})

	done := make(map[string]chan struct{})
	for _, n := range def.Nodes {
		done[n.ID] = make(chan struct{})
	}

	var wg sync.WaitGroup
	var execErr error
	var errOnce sync.Once

	for _, nodeID := range graph.TopologicalOrder() {
		nodeID := nodeID
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, parentID := range graph.Parents(nodeID) {
				select {
				case <-done[parentID]:
				case <-ctx.Done():
					errOnce.Do(func() { execErr = &poem.CancelledError{Message: "run cancelled while waiting on " + parentID} })
					close(done[nodeID])
					return
				}
			}
			r.runNode(ctx, def.Name, sess, graph.Node(nodeID), done[nodeID], &execErr, &errOnce)
		}()
	}

	wg.Wait()

	if execErr != nil {
		r.sessions.SetStatus(sess.ID, SessionFailed)
		finalSess, _ := r.sessions.Get(sess.ID)
		return finalSess, execErr
	}
	r.sessions.SetStatus(sess.ID, SessionCompleted)
	finalSess, _ := r.sessions.Get(sess.ID)
	return finalSess, nil
}

func (r *Runner) runNode(ctx context.Context, runID string, sess *Session, def *NodeDefinition, doneCh chan struct{}, execErr *error, errOnce *sync.Once) {
	defer close(doneCh)

	if ctx.Err() != nil {
		errOnce.Do(func() { *execErr = &poem.CancelledError{Message: "run cancelled before node " + def.ID} })
		return
	}

	ctxSnapshot := r.sessions.ContextCopy(sess.ID)

	for _, req := range def.Requires {
		if _, ok := ctxSnapshot[req]; !ok {
			err := &poem.PipelineError{Node: def.ID, Stage: "input", Err: fmt.Errorf("missing required context key %q", req)}
			errOnce.Do(func() { *execErr = err })
			return
		}
	}

	executor, ok := r.registry.Executor(def.Type)
	if !ok {
		err := &poem.PipelineError{Node: def.ID, Stage: "input", Err: fmt.Errorf("no executor registered for type %q", def.Type)}
		errOnce.Do(func() { *execErr = err })
		return
	}

	r.eventBus.Publish(Event{
		ID: poem.GenerateID("ev"), RunID: runID, SessionID: sess.ID,
		NodeID: def.ID, Type: EventNodeStarted, Timestamp: time.Now(),
	})

	var complete func(outputs any, err error)
	if r.recorder != nil {
		inputs := make(map[string]any, len(def.Requires))
		for _, req := range def.Requires {
			inputs[req] = ctxSnapshot[req]
		}
		complete = r.recorder.Begin(sess.ID, def.ID, def.Type, inputs)
	}

	result, err := executor.Execute(ctx, def, ctxSnapshot)
	if complete != nil {
		complete(result, err)
	}
	if err != nil {
		pipelineErr := &poem.PipelineError{Node: def.ID, Stage: "execute", Err: err}
		r.eventBus.Publish(Event{
			ID: poem.GenerateID("ev"), RunID: runID, SessionID: sess.ID,
			NodeID: def.ID, Type: EventNodeError, Payload: map[string]any{"error": err.Error()}, Timestamp: time.Now(),
		})
		errOnce.Do(func() { *execErr = pipelineErr })
		return
	}

	for _, p := range def.Produces {
		if _, ok := result[p]; !ok {
			err := &poem.PipelineError{Node: def.ID, Stage: "output", Err: fmt.Errorf("node did not produce declared key %q", p)}
			errOnce.Do(func() { *execErr = err })
			return
		}
	}

	for k, v := range result {
		r.sessions.SetContext(sess.ID, k, v)
	}

	r.eventBus.Publish(Event{
		ID: poem.GenerateID("ev"), RunID: runID, SessionID: sess.ID,
		NodeID: def.ID, Type: EventNodeCompleted, Payload: map[string]any{"produced": def.Produces}, Timestamp: time.Now(),
	})
}
