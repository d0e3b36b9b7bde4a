// Package llm adapts external language model APIs to the pipeline's
// narrow ports.LLMProvider contract: a single synchronous
// Generate(prompt) -> text call per provider.
package llm

import "github.com/arabicverse/qasida/internal/poem/ports"

// Provider is an alias kept for readability at call sites; every adapter
// in this package implements ports.LLMProvider directly.
type Provider = ports.LLMProvider
