package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// RhymeResolver fills in Constraint.RhymeLetter/RhymeHarakah when the
// parser left them unset (spec §4.3), same conditional-call shape as
// MeterResolver.
type RhymeResolver struct {
	LLM       ports.LLMProvider
	Formatter ports.PromptFormatter
	Rhymes    ports.RhymeKnowledgeBase
}

type rhymeSelection struct {
	RhymeLetter  string `json:"rhyme_letter"`
	RhymeHarakah string `json:"rhyme_harakah"`
}

func (r *RhymeResolver) Execute(ctx context.Context, def *engine.NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
	c, ok := pipelineCtx["constraint"].(poem.Constraint)
	if !ok {
		return nil, &poem.ValidationError{Message: "rhyme resolver: missing constraint"}
	}

	if c.RhymeLetter != "" {
		return map[string]any{"constraint": c}, nil
	}

	prompt, err := r.Formatter.Format("rhyme_selection", map[string]any{"constraint": c})
	if err != nil {
		return nil, err
	}

	raw, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	jsonText, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var sel rhymeSelection
	if err := json.Unmarshal([]byte(jsonText), &sel); err != nil {
		return nil, &poem.ParseError{Message: fmt.Sprintf("rhyme resolver: %v", err), Raw: raw}
	}

	letter, err := r.Rhymes.NormalizeLetter(sel.RhymeLetter)
	if err != nil {
		return nil, err
	}
	c.RhymeLetter = letter
	c.RhymeHarakah = poem.RhymeHarakah(sel.RhymeHarakah)
	if c.RhymeHarakah == "" {
		c.RhymeHarakah = poem.HarakahFatha
	}

	return map[string]any{"constraint": c}, nil
}
