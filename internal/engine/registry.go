package engine

import (
	"fmt"

	"github.com/arabicverse/qasida/internal/poem"
)

// Registry maps node types to the executors that run them, and validates
// a PipelineDefinition's wiring before any node runs: every node type must
// have a registered executor, and every Requires key must be Produced by
// some node earlier in the declared node list (spec §4.1's "compile-time
// registry" in place of the original's dynamic dispatch).
type Registry struct {
	executors map[NodeType]NodeExecutor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[NodeType]NodeExecutor)}
}

// Register binds a NodeType to the executor that runs it. Registering the
// same type twice overwrites the previous binding.
func (r *Registry) Register(t NodeType, executor NodeExecutor) {
	r.executors[t] = executor
}

// Executor returns the executor bound to t, if any.
func (r *Registry) Executor(t NodeType) (NodeExecutor, bool) {
	e, ok := r.executors[t]
	return e, ok
}

// Validate checks that every node in def has a registered executor and
// that every key it Requires was Produced by a node earlier in def.Nodes.
func (r *Registry) Validate(def *PipelineDefinition) error {
	produced := make(map[string]bool)
	for i := range def.Nodes {
		n := &def.Nodes[i]
		if _, ok := r.executors[n.Type]; !ok {
			return &poem.ConfigError{Message: fmt.Sprintf("node %q: no executor registered for type %q", n.ID, n.Type)}
		}
		for _, req := range n.Requires {
			if !produced[req] {
				return &poem.ConfigError{Message: fmt.Sprintf("node %q requires %q, which no earlier node produces", n.ID, req)}
			}
		}
		for _, p := range n.Produces {
			produced[p] = true
		}
	}
	return nil
}
