package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/arabicverse/qasida/internal/poem"
)

func newTestRunner(reg *Registry) *Runner {
	return NewRunner(reg, NewEventBus(), NewSessionManager(), nil)
}

func TestRunnerSequentialPipelineMergesOutputs(t *testing.T) {
	reg := NewRegistry()
	reg.Register("produce_a", NodeExecutorFunc(func(ctx context.Context, def *NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
		return map[string]any{"a": 1}, nil
	}))
	reg.Register("produce_b", NodeExecutorFunc(func(ctx context.Context, def *NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
		a := pipelineCtx["a"].(int)
		return map[string]any{"b": a + 1}, nil
	}))

	def := &PipelineDefinition{
		Name: "test",
		Nodes: []NodeDefinition{
			{ID: "n1", Type: "produce_a", Produces: []string{"a"}},
			{ID: "n2", Type: "produce_b", Requires: []string{"a"}, Produces: []string{"b"}},
		},
	}

	r := newTestRunner(reg)
	sess, err := r.Run(context.Background(), def, map[string]any{"user_prompt": "hi"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sess.Context["b"] != 2 {
		t.Fatalf("expected b=2 in final context, got %v", sess.Context["b"])
	}
	if sess.Status != SessionCompleted {
		t.Fatalf("expected SessionCompleted, got %v", sess.Status)
	}
}

func TestRunnerNodeFailureTerminatesRun(t *testing.T) {
	reg := NewRegistry()
	reg.Register("boom", NodeExecutorFunc(func(ctx context.Context, def *NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
		return nil, errors.New("node exploded")
	}))

	def := &PipelineDefinition{
		Name:  "test",
		Nodes: []NodeDefinition{{ID: "n1", Type: "boom"}},
	}

	r := newTestRunner(reg)
	sess, err := r.Run(context.Background(), def, map[string]any{"user_prompt": "hi"})
	if err == nil {
		t.Fatalf("expected an error from a failing node")
	}
	var pipelineErr *poem.PipelineError
	if pe, ok := err.(*poem.PipelineError); !ok {
		t.Fatalf("expected *poem.PipelineError, got %T: %v", err, err)
	} else {
		pipelineErr = pe
	}
	if pipelineErr.Node != "n1" {
		t.Fatalf("expected error to name the failing node, got %q", pipelineErr.Node)
	}
	if sess.Status != SessionFailed {
		t.Fatalf("expected SessionFailed, got %v", sess.Status)
	}
}

func TestRunnerMissingRequiredKeyFailsBeforeExecute(t *testing.T) {
	reg := NewRegistry()
	called := false
	reg.Register("needs_poem", NodeExecutorFunc(func(ctx context.Context, def *NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
		called = true
		return map[string]any{}, nil
	}))

	def := &PipelineDefinition{
		Name:  "test",
		Nodes: []NodeDefinition{{ID: "n1", Type: "needs_poem", Requires: []string{"poem"}}},
	}

	r := newTestRunner(reg)
	_, err := r.Run(context.Background(), def, map[string]any{"user_prompt": "hi"})
	if err == nil {
		t.Fatalf("expected an error for a missing required context key")
	}
	if called {
		t.Fatalf("node should not execute when its required input is missing")
	}
}

func TestRunnerValidatesConfigAtBuildTime(t *testing.T) {
	reg := NewRegistry()
	def := &PipelineDefinition{
		Name:  "test",
		Nodes: []NodeDefinition{{ID: "n1", Type: "unregistered_type"}},
	}
	r := newTestRunner(reg)
	_, err := r.Run(context.Background(), def, nil)
	if err == nil {
		t.Fatalf("expected ConfigError for an unregistered node type")
	}
}

func TestRunnerOutputValidationCatchesMissingDeclaredKey(t *testing.T) {
	reg := NewRegistry()
	reg.Register("partial", NodeExecutorFunc(func(ctx context.Context, def *NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
		return map[string]any{}, nil // declared Produces "x" but doesn't return it
	}))
	def := &PipelineDefinition{
		Name:  "test",
		Nodes: []NodeDefinition{{ID: "n1", Type: "partial", Produces: []string{"x"}}},
	}
	r := newTestRunner(reg)
	_, err := r.Run(context.Background(), def, nil)
	if err == nil {
		t.Fatalf("expected an error when a node fails to produce a declared key")
	}
}

func TestRunnerRecorderIsInvokedPerNode(t *testing.T) {
	reg := NewRegistry()
	reg.Register("noop", NodeExecutorFunc(func(ctx context.Context, def *NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	}))
	def := &PipelineDefinition{
		Name:  "test",
		Nodes: []NodeDefinition{{ID: "n1", Type: "noop"}, {ID: "n2", Type: "noop"}},
	}

	var begun []string
	rec := recorderFunc(func(sessionID, nodeID string, nodeType NodeType, inputs map[string]any) func(outputs any, err error) {
		begun = append(begun, nodeID)
		return func(outputs any, err error) {}
	})

	r := NewRunner(reg, NewEventBus(), NewSessionManager(), rec)
	if _, err := r.Run(context.Background(), def, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(begun) != 2 {
		t.Fatalf("expected recorder.Begin called once per node, got %v", begun)
	}
}

type recorderFunc func(sessionID, nodeID string, nodeType NodeType, inputs map[string]any) func(outputs any, err error)

func (f recorderFunc) Begin(sessionID, nodeID string, nodeType NodeType, inputs map[string]any) func(outputs any, err error) {
	return f(sessionID, nodeID, nodeType, inputs)
}
