package refiners

import (
	"context"
	"fmt"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

// RhymeRefiner rewrites the closing hemistich of the first bait whose
// rhyme fails validation.
type RhymeRefiner struct {
	LLM        ports.LLMProvider
	Formatter  ports.PromptFormatter
	CandidateN int
}

func (r *RhymeRefiner) Name() string             { return "rhyme_refiner" }
func (r *RhymeRefiner) Affects() string          { return "rhyme" }
func (r *RhymeRefiner) Applies(q poem.Quality) bool { return !q.Rhyme.IsValid }

func (r *RhymeRefiner) Refine(ctx context.Context, c poem.Constraint, p poem.Poem, q poem.Quality) (poem.Poem, error) {
	baitNum, issue := firstFailingBait(q.Rhyme)
	if baitNum == 0 {
		return p, nil
	}
	opening, closing, ok := p.Bait(baitNum)
	if !ok {
		return p, nil
	}

	n := r.CandidateN
	if n <= 1 {
		n = 1
	}

	generate := func(ctx context.Context, i int) (any, error) {
		return r.rewriteOnce(ctx, c, issue, opening, closing)
	}

	var chosen baitRewrite
	if n == 1 {
		rw, err := generate(ctx, 0)
		if err != nil {
			return p, err
		}
		chosen = rw.(baitRewrite)
	} else {
		judge := func(ctx context.Context, candidates []any) (string, error) {
			prompt, err := r.Formatter.Format("rhyme_refiner_selection", map[string]any{
				"candidate_count": len(candidates),
				"candidates":      describeBaitCandidates(candidates),
			})
			if err != nil {
				return "", err
			}
			return r.LLM.Generate(ctx, prompt)
		}
		result, err := engine.RunBestOfN(ctx, n, generate, judge)
		if err != nil {
			return p, err
		}
		if result.AllFailed {
			return p, nil
		}
		chosen = result.Selected.(baitRewrite)
	}

	return applyBaitRewrite(p, baitNum, chosen), nil
}

func (r *RhymeRefiner) rewriteOnce(ctx context.Context, c poem.Constraint, issue, opening, closing string) (baitRewrite, error) {
	prompt, err := r.Formatter.Format("rhyme_refiner", map[string]any{
		"rhyme_letter":  c.RhymeLetter,
		"rhyme_harakah": c.RhymeHarakah,
		"issue":         issue,
		"bait":          fmt.Sprintf("%s / %s", opening, closing),
	})
	if err != nil {
		return baitRewrite{}, err
	}
	raw, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return baitRewrite{}, err
	}
	return parseBaitRewrite(raw)
}
