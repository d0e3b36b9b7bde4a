package ports

import "context"

// LLMProvider is the external LLM adapter contract (spec §6). It is
// synchronous from the core's point of view; adapters may be called from
// an async task but must not suspend beyond their configured timeout.
// Implementations must retry transient transport errors internally up to
// their configured max_retries before returning an error.
type LLMProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptFormatter is the external prompt-template contract (spec §6).
// Template bodies are provisioned externally; the core only depends on
// this interface.
type PromptFormatter interface {
	Format(templateID string, params map[string]any) (string, error)
}
