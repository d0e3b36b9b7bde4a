package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// ConstraintParser turns a free-text user prompt into a structured
// Constraint (spec §4.2). It requires "user_prompt" in the pipeline
// context and produces "constraint".
type ConstraintParser struct {
	LLM       ports.LLMProvider
	Formatter ports.PromptFormatter
	Meters    ports.MeterKnowledgeBase
	Rhymes    ports.RhymeKnowledgeBase
}

type parsedConstraint struct {
	Meter        string   `json:"meter"`
	RhymeLetter  string   `json:"rhyme_letter"`
	RhymeHarakah string   `json:"rhyme_harakah"`
	LineCount    int      `json:"line_count"`
	Theme        string   `json:"theme"`
	Tone         string   `json:"tone"`
	Register     string   `json:"register"`
	Era          string   `json:"era"`
	PoetStyle    string   `json:"poet_style"`
	Imagery      []string `json:"imagery"`
	Keywords     []string `json:"keywords"`
	Ambiguities  []string `json:"ambiguities"`
}

// Execute implements engine.NodeExecutor.
func (p *ConstraintParser) Execute(ctx context.Context, def *engine.NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
	userPrompt, _ := pipelineCtx["user_prompt"].(string)
	if userPrompt == "" {
		return nil, &poem.ValidationError{Message: "constraint parser: user_prompt is empty"}
	}

	prompt, err := p.Formatter.Format("constraint_parsing", map[string]any{"user_prompt": userPrompt})
	if err != nil {
		return nil, err
	}

	raw, err := p.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	jsonText, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var parsed parsedConstraint
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, &poem.ParseError{Message: fmt.Sprintf("constraint parser: %v", err), Raw: raw}
	}

	c := poem.Constraint{
		Meter:          parsed.Meter,
		RhymeLetter:    parsed.RhymeLetter,
		RhymeHarakah:   poem.RhymeHarakah(parsed.RhymeHarakah),
		LineCount:      parsed.LineCount,
		Theme:          parsed.Theme,
		Tone:           parsed.Tone,
		Register:       parsed.Register,
		Era:            parsed.Era,
		PoetStyle:      parsed.PoetStyle,
		Imagery:        parsed.Imagery,
		Keywords:       parsed.Keywords,
		Ambiguities:    parsed.Ambiguities,
		OriginalPrompt: userPrompt,
	}
	if c.LineCount <= 0 {
		c.LineCount = 8
	}

	if c.Meter != "" && p.Meters != nil {
		if canonical, err := p.Meters.Canonicalize(c.Meter); err == nil {
			if desc, ok := p.Meters.Lookup(canonical); ok {
				c.Meter = canonical
				c.MeterFeet = desc.Feet
			}
		} else {
			c.Ambiguities = append(c.Ambiguities, fmt.Sprintf("meter %q not recognized: %v", c.Meter, err))
			c.Meter = ""
		}
	}

	if c.RhymeLetter != "" && p.Rhymes != nil {
		if normalized, err := p.Rhymes.NormalizeLetter(c.RhymeLetter); err == nil {
			c.RhymeLetter = normalized
		} else {
			c.Ambiguities = append(c.Ambiguities, fmt.Sprintf("rhyme letter %q not recognized: %v", c.RhymeLetter, err))
			c.RhymeLetter = ""
		}
	}

	return map[string]any{"constraint": c}, nil
}
