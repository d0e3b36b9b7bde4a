// Package engine runs a pipeline specification (a DAG of typed nodes
// sharing a mutable context) to completion, node by node, in topological
// order with concurrent fan-out wherever the graph allows it.
package engine

import (
	"context"
	"time"
)

// NodeType names one of the pipeline's typed stages (spec §4.1-4.6).
type NodeType string

const (
	NodeTypeConstraintParser NodeType = "constraint_parser"
	NodeTypeMeterResolver    NodeType = "meter_resolver"
	NodeTypeRhymeResolver    NodeType = "rhyme_resolver"
	NodeTypeGenerator        NodeType = "generator"
	NodeTypeEvaluator        NodeType = "evaluator"
	NodeTypeRefinerChain     NodeType = "refiner_chain"
)

// EventType classifies a lifecycle event published on the EventBus.
type EventType string

const (
	EventNodeStarted   EventType = "node.started"
	EventNodeCompleted EventType = "node.completed"
	EventNodeError     EventType = "node.error"
	EventLLMRequest    EventType = "llm.request"
	EventLLMResponse   EventType = "llm.response"
)

// SessionStatus is the lifecycle state of one pipeline run.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// PipelineDefinition is a configuration-driven DAG: nodes plus the edges
// wiring their outputs to downstream inputs (spec §4.1).
type PipelineDefinition struct {
	Name    string           `json:"name" yaml:"name"`
	Version int              `json:"version" yaml:"version"`
	Nodes   []NodeDefinition `json:"nodes" yaml:"nodes"`
	Edges   []EdgeDefinition `json:"edges" yaml:"edges"`
}

// NodeDefinition configures one node instance. Requires/Produces list the
// context keys the node reads and writes; the registry validates these at
// build time so a missing upstream producer is a ConfigError, not a panic
// at run time.
type NodeDefinition struct {
	ID       string         `json:"id" yaml:"id"`
	Type     NodeType       `json:"type" yaml:"type"`
	Config   map[string]any `json:"config" yaml:"config"`
	Requires []string       `json:"requires,omitempty" yaml:"requires,omitempty"`
	Produces []string       `json:"produces,omitempty" yaml:"produces,omitempty"`
}

// EdgeDefinition wires one node's completion to another's start.
type EdgeDefinition struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Event is one instrumentation record published during a run.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	SessionID string    `json:"session_id"`
	NodeID    string    `json:"node_id,omitempty"`
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one pipeline run's shared mutable context plus bookkeeping.
// Context holds every key a node has produced so far, keyed by node ID's
// produced key names (not by node ID) so downstream nodes address data by
// meaning rather than by provenance.
type Session struct {
	ID         string         `json:"id"`
	PipelineID string         `json:"pipeline_id"`
	Context    map[string]any `json:"context"`
	Events     []Event        `json:"events"`
	Status     SessionStatus  `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NodeExecutor runs one node's logic against a read-only snapshot of the
// session context. The returned map must carry every key listed in the
// node's Produces (the runner checks this before merging the result back
// into the session context); any further keys it carries are merged too.
type NodeExecutor interface {
	Execute(ctx context.Context, def *NodeDefinition, pipelineCtx map[string]any) (map[string]any, error)
}

// NodeExecutorFunc adapts a function to a NodeExecutor.
type NodeExecutorFunc func(ctx context.Context, def *NodeDefinition, pipelineCtx map[string]any) (map[string]any, error)

func (f NodeExecutorFunc) Execute(ctx context.Context, def *NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
	return f(ctx, def, pipelineCtx)
}

// Recorder is the capture subsystem's hook into the runner, wired by the
// service layer (spec §4.7 / Design Notes §9). It is deliberately the
// only point of contact between engine and the capture package, so the
// two never import one another.
type Recorder interface {
	// Begin is called immediately before a node executes and returns a
	// function to call with the node's outcome once it finishes.
	Begin(sessionID, nodeID string, nodeType NodeType, inputs map[string]any) func(outputs any, err error)
}

