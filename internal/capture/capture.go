// Package capture implements the execution-capture subsystem: a
// non-intrusive record of every instrumented method call a pipeline run
// makes, assembled into an Execution for the harmony compiler to consume
// (spec §4.7). Go has no runtime method interception, so capture hooks
// into the one seam the engine exposes — engine.Recorder.Begin, called
// immediately around every node's Execute — rather than proxying method
// calls dynamically (Design Notes §9).
package capture

import (
	"sync"
	"time"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
)

// Recorder implements engine.Recorder, appending one CapturedCall per
// node execution to the Execution registered for that node's session.
type Recorder struct {
	mu         sync.Mutex
	executions map[string]*poem.Execution
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{executions: make(map[string]*poem.Execution)}
}

// StartExecution registers a new Execution for sessionID and returns it.
// Call this once per pipeline run before wiring the Recorder into an
// engine.Runner.
func (r *Recorder) StartExecution(sessionID, userPrompt string) *poem.Execution {
	r.mu.Lock()
	defer r.mu.Unlock()
	exec := &poem.Execution{
		ID:         poem.GenerateID("exec"),
		StartedAt:  time.Now(),
		UserPrompt: userPrompt,
		Status:     "running",
	}
	r.executions[sessionID] = exec
	return exec
}

// Execution returns the Execution registered for sessionID, if any.
func (r *Recorder) Execution(sessionID string) (*poem.Execution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.executions[sessionID]
	return e, ok
}

// Finish marks sessionID's execution complete, attaching the final poem
// and quality.
func (r *Recorder) Finish(sessionID string, finalPoem *poem.Poem, finalQuality *poem.Quality, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.executions[sessionID]
	if !ok {
		return
	}
	e.CompletedAt = time.Now()
	e.FinalPoem = finalPoem
	e.FinalQuality = finalQuality
	e.Status = status
}

// Begin implements engine.Recorder. It records the call's start and
// returns a completion function the runner calls with the node's
// outcome.
func (r *Recorder) Begin(sessionID, nodeID string, nodeType engine.NodeType, inputs map[string]any) func(outputs any, err error) {
	started := time.Now()
	sanitizedInputs := make(map[string]any, len(inputs))
	for k, v := range inputs {
		sanitizedInputs[k] = Sanitize(v)
	}

	return func(outputs any, err error) {
		call := poem.CapturedCall{
			ID:        poem.GenerateID("call"),
			Timestamp: started,
			Component: nodeID,
			Method:    string(nodeType),
			Type:      callTypeFor(nodeType),
			Inputs:    sanitizedInputs,
			Duration:  time.Since(started),
			Success:   err == nil,
		}
		if err != nil {
			call.Error = err.Error()
		} else {
			call.Outputs = Sanitize(outputs)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		exec, ok := r.executions[sessionID]
		if !ok {
			return
		}
		exec.Calls = append(exec.Calls, call)
		// Calls complete out of start order when DAG branches run
		// concurrently; move this one back to keep Calls in start-time order.
		for i := len(exec.Calls) - 1; i > 0 && exec.Calls[i].Timestamp.Before(exec.Calls[i-1].Timestamp); i-- {
			exec.Calls[i], exec.Calls[i-1] = exec.Calls[i-1], exec.Calls[i]
		}
		if call.LLM != nil {
			exec.TotalLLMCalls++
			exec.TotalTokens += call.LLM.Tokens
		}
	}
}

func callTypeFor(t engine.NodeType) poem.CallType {
	switch t {
	case engine.NodeTypeConstraintParser:
		return poem.CallParse
	case engine.NodeTypeMeterResolver, engine.NodeTypeRhymeResolver:
		return poem.CallEnrich
	case engine.NodeTypeGenerator:
		return poem.CallGenerate
	case engine.NodeTypeEvaluator:
		return poem.CallEvaluate
	case engine.NodeTypeRefinerChain:
		return poem.CallRefine
	default:
		return poem.CallProcess
	}
}
