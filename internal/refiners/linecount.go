package refiners

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arabicverse/qasida/internal/jsonutil"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// LineCountRefiner asks the LLM to extend or trim the poem to the exact
// required hemistich count. Unlike the other refiners it rewrites the
// whole poem at once, since adding or removing baits isn't a localized
// edit.
type LineCountRefiner struct {
	LLM       ports.LLMProvider
	Formatter ports.PromptFormatter
}

func (r *LineCountRefiner) Name() string             { return "line_count_refiner" }
func (r *LineCountRefiner) Affects() string          { return "line_count" }
func (r *LineCountRefiner) Applies(q poem.Quality) bool { return !q.LineCount.IsValid }

func (r *LineCountRefiner) Refine(ctx context.Context, c poem.Constraint, p poem.Poem, q poem.Quality) (poem.Poem, error) {
	prompt, err := r.Formatter.Format("line_count_refiner", map[string]any{
		"actual_hemistichs":   len(p.Verses),
		"expected_hemistichs": c.TotalHemistichs(),
		"theme":               c.Theme,
		"meter":               c.Meter,
		"rhyme_letter":        c.RhymeLetter,
		"poem":                strings.Join(p.Verses, "\n"),
	})
	if err != nil {
		return p, err
	}
	raw, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return p, err
	}
	jsonText, err := jsonutil.Extract(raw)
	if err != nil {
		return p, err
	}
	var verses []string
	if err := json.Unmarshal([]byte(jsonText), &verses); err != nil {
		return p, &poem.ParseError{Message: fmt.Sprintf("line count refiner: %v", err), Raw: raw}
	}
	p.Verses = verses
	p.Quality = nil
	return p, nil
}
