package poem

import "fmt"

// ConfigError reports a malformed pipeline spec (unknown node type, or a
// build-time key-wiring failure).
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return "config error: " + e.Message }

// ParseError reports an LLM response that could not be parsed into the
// shape a node expected.
type ParseError struct {
	Message string
	Raw     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Message)
}

// ValidationError reports a computed artifact that violates its schema.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return "validation error: " + e.Message }

// MeterError reports that a requested meter could not be resolved against
// the knowledge base.
type MeterError struct {
	Message    string
	Candidates []string
}

func (e *MeterError) Error() string {
	if len(e.Candidates) == 0 {
		return "meter error: " + e.Message
	}
	return fmt.Sprintf("meter error: %s (candidates: %v)", e.Message, e.Candidates)
}

// RhymeError reports that a requested rhyme letter/type could not be
// resolved against the knowledge base.
type RhymeError struct {
	Message    string
	Candidates []string
}

func (e *RhymeError) Error() string {
	if len(e.Candidates) == 0 {
		return "rhyme error: " + e.Message
	}
	return fmt.Sprintf("rhyme error: %s (candidates: %v)", e.Message, e.Candidates)
}

// LLMError reports a transport failure from an LLM adapter after its
// configured retries were exhausted.
type LLMError struct {
	Provider string
	Message  string
	Err      error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm error (%s): %s", e.Provider, e.Message)
}

func (e *LLMError) Unwrap() error { return e.Err }

// PipelineError reports a node-level failure, carrying the node name and
// the stage (input validation, execution, or output validation) at which
// it occurred.
type PipelineError struct {
	Node    string
	Stage   string // "input", "execute", "output"
	Err     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error: node %q stage %q: %v", e.Node, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// CancelledError reports that a run was unwound by cancellation.
type CancelledError struct {
	Message string
}

func (e *CancelledError) Error() string { return "cancelled: " + e.Message }

// CompilerError reports a Harmony Compiler synthesis failure, carrying the
// raw LLM response that could not be parsed.
type CompilerError struct {
	Message string
	Raw     string
}

func (e *CompilerError) Error() string { return "compiler error: " + e.Message }
