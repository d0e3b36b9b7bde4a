package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// MeterResolver fills in Constraint.Meter/MeterFeet when the parser left
// them unset (spec §4.3). If the meter is already known it looks up the
// feet and returns without calling the LLM — a conditional-call shape
// that only reaches for the LLM when deterministic lookup can't resolve
// the field.
type MeterResolver struct {
	LLM       ports.LLMProvider
	Formatter ports.PromptFormatter
	Meters    ports.MeterKnowledgeBase
}

type meterSelection struct {
	Meter  string `json:"meter"`
	Reason string `json:"reason"`
}

func (r *MeterResolver) Execute(ctx context.Context, def *engine.NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
	c, ok := pipelineCtx["constraint"].(poem.Constraint)
	if !ok {
		return nil, &poem.ValidationError{Message: "meter resolver: missing constraint"}
	}

	if c.Meter != "" {
		if desc, ok := r.Meters.Lookup(c.Meter); ok && len(c.MeterFeet) == 0 {
			c.MeterFeet = desc.Feet
		}
		return map[string]any{"constraint": c}, nil
	}

	candidates := r.Meters.ByTheme(c.Theme)
	if len(candidates) == 0 {
		candidates = r.Meters.Search("")
	}

	prompt, err := r.Formatter.Format("meter_selection", map[string]any{
		"constraint":       c,
		"meter_candidates": describeMeters(candidates),
	})
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
	var sel meterSelection
	if err := json.Unmarshal([]byte(jsonText), &sel); err != nil {
		return nil, &poem.ParseError{Message: fmt.Sprintf("meter resolver: %v", err), Raw: raw}
	}

	canonical, err := r.Meters.Canonicalize(sel.Meter)
	if err != nil {
		return nil, err
	}
	desc, _ := r.Meters.Lookup(canonical)
	c.Meter = canonical
	if desc != nil {
		c.MeterFeet = desc.Feet
	}
	return map[string]any{"constraint": c}, nil
}

func describeMeters(ds []poem.MeterDescriptor) string {
	s := ""
	for _, d := range ds {
		s += fmt.Sprintf("- %s (%s): themes %v, difficulty %s\n", d.Name, d.DisplayName, d.Themes, d.Difficulty)
	}
	return s
}
