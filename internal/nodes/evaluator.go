package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// DimensionWeights controls how the four validation dimensions combine
// into Quality.OverallScore (spec §4.5's default weighting).
type DimensionWeights struct {
	Prosody    float64
	Rhyme      float64
	LineCount  float64
	Diacritics float64
}

// DefaultWeights are the default per-dimension scoring weights.
func DefaultWeights() DimensionWeights {
	return DimensionWeights{Prosody: 0.4, Rhyme: 0.3, LineCount: 0.2, Diacritics: 0.1}
}

// Evaluator scores a candidate poem along four dimensions and combines
// them into an overall Quality verdict (spec §4.5). It requires
// "constraint" and "poem", and produces "quality".
type Evaluator struct {
	LLM             ports.LLMProvider
	Formatter       ports.PromptFormatter
	Meters          ports.MeterKnowledgeBase
	Weights         DimensionWeights
	AcceptThreshold float64
	// MinProsody/MinRhyme are the per-dimension acceptability floors spec
	// §4.5 requires in addition to the overall threshold: a poem is not
	// acceptable on aggregate score alone if prosody or rhyme individually
	// fall below their configured floor.
	MinProsody float64
	MinRhyme   float64
}

type dimensionResponse struct {
	IsValid bool     `json:"is_valid"`
	PerBait []bool   `json:"per_bait"`
	Summary string   `json:"summary"`
	Issues  []string `json:"issues"`
}

func (e *Evaluator) Execute(ctx context.Context, def *engine.NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
	c, ok := pipelineCtx["constraint"].(poem.Constraint)
	if !ok {
		return nil, &poem.ValidationError{Message: "evaluator: missing constraint"}
	}
	p, ok := pipelineCtx["poem"].(poem.Poem)
	if !ok {
		return nil, &poem.ValidationError{Message: "evaluator: missing poem"}
	}

	weights := e.Weights
	if weights == (DimensionWeights{}) {
		weights = DefaultWeights()
	}

	baits := describeBaits(p)
	totalBaits := p.Baits()

	prosody, err := e.evaluateProsody(ctx, c, baits)
	if err != nil {
		return nil, err
	}
	rhyme, err := e.callDimension(ctx, "rhyme_validation", map[string]any{
		"rhyme_letter":  c.RhymeLetter,
		"rhyme_harakah": c.RhymeHarakah,
		"rhyme_type":    c.RhymeType,
		"baits":         baits,
	})
	if err != nil {
		return nil, err
	}
	lineCount := e.evaluateLineCount(c, p)
	diacritics, err := e.callDimension(ctx, "diacritics_validation", map[string]any{"baits": baits})
	if err != nil {
		return nil, err
	}

	overall := weights.Prosody*prosody.ValidRatio() +
		weights.Rhyme*rhyme.ValidRatio() +
		weights.LineCount*lineCount.ValidRatio() +
		weights.Diacritics*diacritics.ValidRatio()
	// Weighted mean: dividing by the weight sum keeps an all-valid poem at
	// exactly 1.0 even when the weights don't sum to 1 in floating point.
	if total := weights.Prosody + weights.Rhyme + weights.LineCount + weights.Diacritics; total > 0 {
		overall /= total
	}

	threshold := e.AcceptThreshold
	if threshold == 0 {
		threshold = 0.85
	}
	minProsody, minRhyme := e.MinProsody, e.MinRhyme

	var issues []string
	issues = append(issues, prosody.Issues...)
	issues = append(issues, rhyme.Issues...)
	issues = append(issues, lineCount.Issues...)
	issues = append(issues, diacritics.Issues...)

	acceptable := overall >= threshold &&
		prosody.ValidRatio() >= minProsody &&
		rhyme.ValidRatio() >= minRhyme

	q := poem.Quality{
		OverallScore: overall,
		Prosody:      prosody,
		Rhyme:        rhyme,
		LineCount:    lineCount,
		Diacritics:   diacritics,
		Issues:       issues,
		TotalBaits:   totalBaits,
		IsAcceptable: acceptable,
	}
	p.Quality = &q

	return map[string]any{"poem": p, "quality": q}, nil
}

// evaluateProsody handles the bahr_unknown edge case: if the constraint's
// meter never resolved, there is nothing to scan against, so this
// dimension is marked invalid with an explanatory issue instead of issuing
// a meaningless LLM call.
func (e *Evaluator) evaluateProsody(ctx context.Context, c poem.Constraint, baits string) (poem.DimensionResult, error) {
	if c.Meter == "" || len(c.MeterFeet) == 0 {
		return poem.DimensionResult{
			IsValid: false,
			Summary: "meter could not be resolved; prosody cannot be scored",
			Issues:  []string{"bahr_unknown"},
		}, nil
	}
	allowed := ""
	if desc, ok := e.Meters.Lookup(c.Meter); ok {
		allowed = strings.Join(append(append([]string{}, desc.AllowedZihafs...), desc.AllowedIlals...), ", ")
	}
	return e.callDimension(ctx, "prosody_validation", map[string]any{
		"meter":            c.Meter,
		"meter_feet":       c.MeterFeet,
		"allowed_variants": allowed,
		"baits":            baits,
	})
}

func (e *Evaluator) evaluateLineCount(c poem.Constraint, p poem.Poem) poem.DimensionResult {
	expected := c.TotalHemistichs()
	actual := len(p.Verses)
	if expected == actual {
		return poem.DimensionResult{IsValid: true, Summary: fmt.Sprintf("expected and actual hemistich count match (%d)", actual)}
	}
	return poem.DimensionResult{
		IsValid: false,
		Summary: fmt.Sprintf("expected %d hemistichs, got %d", expected, actual),
		Issues:  []string{fmt.Sprintf("line_count mismatch: expected %d got %d", expected, actual)},
	}
}

// callDimension invokes a validation template and parses its response. A
// response that fails to parse is the parse_error edge case: the
// dimension is marked invalid rather than propagating a fatal error, so
// one malformed judge response doesn't abort the whole evaluation.
func (e *Evaluator) callDimension(ctx context.Context, templateID string, params map[string]any) (poem.DimensionResult, error) {
	prompt, err := e.Formatter.Format(templateID, params)
	if err != nil {
		return poem.DimensionResult{}, err
	}
	raw, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return poem.DimensionResult{}, err
	}
	jsonText, err := ExtractJSON(raw)
	if err != nil {
		return poem.DimensionResult{IsValid: false, Summary: "judge response could not be parsed", Issues: []string{"parse_error"}}, nil
	}
	var resp dimensionResponse
	if jsonErr := json.Unmarshal([]byte(jsonText), &resp); jsonErr != nil {
		return poem.DimensionResult{IsValid: false, Summary: "judge response could not be parsed", Issues: []string{"parse_error"}}, nil
	}
	isValid := resp.IsValid
	if len(resp.PerBait) > 0 {
		isValid = true
		for _, v := range resp.PerBait {
			if !v {
				isValid = false
				break
			}
		}
	}
	return poem.DimensionResult{
		IsValid:        isValid,
		PerBaitResults: resp.PerBait,
		Summary:        resp.Summary,
		Issues:         resp.Issues,
	}, nil
}

// Evaluate lets the refiner chain re-score a candidate without going
// through the engine's node-definition plumbing, satisfying the
// Evaluation interface refiner_chain.go depends on.
func (e *Evaluator) Evaluate(ctx context.Context, c poem.Constraint, p poem.Poem) (poem.Quality, error) {
	out, err := e.Execute(ctx, &engine.NodeDefinition{}, map[string]any{"constraint": c, "poem": p})
	if err != nil {
		return poem.Quality{}, err
	}
	return out["quality"].(poem.Quality), nil
}

func describeBaits(p poem.Poem) string {
	var sb strings.Builder
	for n := 1; n <= p.Baits(); n++ {
		opening, closing, ok := p.Bait(n)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "bait %d: %s / %s\n", n, opening, closing)
	}
	return sb.String()
}
