package refiners

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/jsonutil"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/poem/ports"
)

type baitRewrite struct {
	Opening string `json:"opening"`
	Closing string `json:"closing"`
}

// ProsodyRefiner rewrites the first bait that fails prosodic scansion.
type ProsodyRefiner struct {
	LLM       ports.LLMProvider
	Formatter ports.PromptFormatter
	CandidateN int // best-of-N rewrite candidates; 0 or 1 means a single attempt
}

func (r *ProsodyRefiner) Name() string    { return "prosody_refiner" }
func (r *ProsodyRefiner) Affects() string { return "prosody" }

func (r *ProsodyRefiner) Applies(q poem.Quality) bool { return !q.Prosody.IsValid }

func (r *ProsodyRefiner) Refine(ctx context.Context, c poem.Constraint, p poem.Poem, q poem.Quality) (poem.Poem, error) {
	baitNum, issue := firstFailingBait(q.Prosody)
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
			prompt, err := r.Formatter.Format("prosody_refiner_selection", map[string]any{
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

func (r *ProsodyRefiner) rewriteOnce(ctx context.Context, c poem.Constraint, issue, opening, closing string) (baitRewrite, error) {
	prompt, err := r.Formatter.Format("prosody_refiner", map[string]any{
		"meter": c.Meter,
		"issue": issue,
		"bait":  opening + " / " + closing,
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

func firstFailingBait(d poem.DimensionResult) (baitNum int, issue string) {
	for i, ok := range d.PerBaitResults {
		if !ok {
			if i < len(d.Issues) {
				issue = d.Issues[i]
			} else if len(d.Issues) > 0 {
				issue = d.Issues[0]
			} else {
				issue = d.Summary
			}
			return i + 1, issue
		}
	}
	if len(d.Issues) > 0 {
		return 0, d.Issues[0]
	}
	return 0, d.Summary
}

func parseBaitRewrite(raw string) (baitRewrite, error) {
	jsonText, err := jsonutil.Extract(raw)
	if err != nil {
		return baitRewrite{}, err
	}
	var rw baitRewrite
	if err := json.Unmarshal([]byte(jsonText), &rw); err != nil {
		return baitRewrite{}, &poem.ParseError{Message: fmt.Sprintf("bait rewrite: %v", err), Raw: raw}
	}
	return rw, nil
}

func applyBaitRewrite(p poem.Poem, baitNum int, rw baitRewrite) poem.Poem {
	verses := append([]string(nil), p.Verses...)
	i := (baitNum - 1) * 2
	if i >= 0 && i+1 < len(verses) {
		verses[i] = rw.Opening
		verses[i+1] = rw.Closing
	}
	p.Verses = verses
	p.Quality = nil
	return p
}

func describeBaitCandidates(candidates []any) string {
	s := ""
	for i, c := range candidates {
		rw := c.(baitRewrite)
		s += fmt.Sprintf("--- candidate %d ---\n%s / %s\n", i, rw.Opening, rw.Closing)
	}
	return s
}
