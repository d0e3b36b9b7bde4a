package llm

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// GeminiAdapter talks to the Gemini API directly through the genai SDK.
// The pipeline's contract needs nothing beyond a single synchronous
// Generate call, so this intentionally skips the agent/session/runner
// machinery a fuller Gemini integration would bring in (see DESIGN.md's
// dropped-dependencies note on google.golang.org/adk).
type GeminiAdapter struct {
	name   string
	apiKey string
	model  string

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewGeminiAdapter builds an adapter bound to one Gemini model.
func NewGeminiAdapter(name, apiKey, model string) *GeminiAdapter {
	return &GeminiAdapter{name: name, apiKey: apiKey, model: model}
}

func (g *GeminiAdapter) Name() string { return g.name }

func (g *GeminiAdapter) ensureClient(ctx context.Context) error {
	g.once.Do(func() {
		g.client, g.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.initErr
}

// Generate sends prompt as the sole user turn and returns the response
// text.
func (g *GeminiAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.ensureClient(ctx); err != nil {
		return "", fmt.Errorf("gemini: client init failed: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: empty response")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text, nil
}
