package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// Generator produces one or more candidate poems from a resolved
// Constraint and, when config["best_of_n"] > 1, runs them through
// engine.RunBestOfN with a judge call. It requires "constraint" and
// produces "poem". The LLM response is parsed as plain lines (split on
// newline, stripped, empties dropped) — it does not verify prosody or
// rhyme, that's a separate stage.
type Generator struct {
	LLM       ports.LLMProvider
	Formatter ports.PromptFormatter
	Provider  string
	Model     string
}

func (g *Generator) Execute(ctx context.Context, def *engine.NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
	c, ok := pipelineCtx["constraint"].(poem.Constraint)
	if !ok {
		return nil, &poem.ValidationError{Message: "generator: missing constraint"}
	}

	n := 1
	if v, ok := def.Config["best_of_n"].(int); ok && v > 0 {
		n = v
	} else if v, ok := def.Config["best_of_n"].(float64); ok && v > 0 {
		n = int(v)
	}

	generate := func(ctx context.Context, i int) (any, error) {
		return g.generateOne(ctx, c)
	}

	if n <= 1 {
		p, err := generate(ctx, 0)
		if err != nil {
			return nil, err
		}
		return map[string]any{"poem": p.(poem.Poem)}, nil
	}

	judge := func(ctx context.Context, candidates []any) (string, error) {
		prompt, err := g.Formatter.Format("generation_selection", map[string]any{
			"candidate_count": len(candidates),
			"candidates":      describePoemCandidates(candidates),
		})
		if err != nil {
			return "", err
		}
		return g.LLM.Generate(ctx, prompt)
	}

	result, err := engine.RunBestOfN(ctx, n, generate, judge)
	if err != nil {
		return nil, err
	}
	if result.AllFailed {
		return map[string]any{
			"poem":       poem.Poem{ConstraintsSnapshot: c},
			"all_failed": true,
		}, nil
	}

	return map[string]any{"poem": result.Selected.(poem.Poem)}, nil
}

func (g *Generator) generateOne(ctx context.Context, c poem.Constraint) (poem.Poem, error) {
	prompt, err := g.Formatter.Format("poem_generation", map[string]any{"constraint": c})
	if err != nil {
		return poem.Poem{}, err
	}
	raw, err := g.LLM.Generate(ctx, prompt)
	if err != nil {
		return poem.Poem{}, err
	}
	verses := parseGenerationResponse(raw)
	return poem.Poem{
		Verses:              verses,
		Provider:            g.Provider,
		Model:               g.Model,
		ConstraintsSnapshot: c,
	}, nil
}

// parseGenerationResponse splits the raw LLM response into verses: one
// hemistich per non-empty line (spec §4.4), no JSON involved.
func parseGenerationResponse(response string) []string {
	var verses []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			verses = append(verses, line)
		}
	}
	return verses
}

func describePoemCandidates(candidates []any) string {
	s := ""
	for i, c := range candidates {
		p := c.(poem.Poem)
		s += fmt.Sprintf("--- candidate %d ---\n", i)
		for _, v := range p.Verses {
			s += v + "\n"
		}
	}
	return s
}
