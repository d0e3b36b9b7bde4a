package refiners

import (
	"context"
	"fmt"

	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// DiacriticsRefiner adds tashkeel to the first bait missing it. Unlike
// the prosody and rhyme refiners, there is no selection template for
// this dimension, so it always takes the single-attempt rewrite.
type DiacriticsRefiner struct {
	LLM       ports.LLMProvider
	Formatter ports.PromptFormatter
}

func (r *DiacriticsRefiner) Name() string             { return "diacritics_refiner" }
func (r *DiacriticsRefiner) Affects() string          { return "diacritics" }
func (r *DiacriticsRefiner) Applies(q poem.Quality) bool { return !q.Diacritics.IsValid }

func (r *DiacriticsRefiner) Refine(ctx context.Context, c poem.Constraint, p poem.Poem, q poem.Quality) (poem.Poem, error) {
	baitNum, issue := firstFailingBait(q.Diacritics)
	if baitNum == 0 {
		return p, nil
	}
	opening, closing, ok := p.Bait(baitNum)
	if !ok {
		return p, nil
	}

	prompt, err := r.Formatter.Format("diacritics_refiner", map[string]any{
		"issue": issue,
		"bait":  fmt.Sprintf("%s / %s", opening, closing),
	})
	if err != nil {
		return p, err
	}
	raw, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return p, err
	}
	rw, err := parseBaitRewrite(raw)
	if err != nil {
		return p, err
	}
	return applyBaitRewrite(p, baitNum, rw), nil
}
