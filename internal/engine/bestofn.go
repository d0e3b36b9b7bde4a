package engine

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// BestOfNResult is the outcome of fanning N candidates out and letting a
// judge pick a winner (spec §4.1 — the only form of in-pipeline
// parallelism besides independent DAG branches).
type BestOfNResult struct {
	Candidates    []any
	CandidateErrs []error
	SelectedIndex int
	Selected      any
	AllFailed     bool
}

// GenerateFunc produces one Best-of-N candidate. i is the candidate's
// 0-based slot; RunBestOfN only passes it through and sets no temperature
// or other per-candidate setting, and the generator and refiners ignore it.
type GenerateFunc func(ctx context.Context, i int) (any, error)

// JudgeFunc asks an LLM (or any decision procedure) to pick a winner among
// candidates, returning its raw text response (expected to contain the
// 0-based index of the winner) so RunBestOfN can parse it consistently
// regardless of which judge implementation is used.
type JudgeFunc func(ctx context.Context, candidates []any) (string, error)

// RunBestOfN generates n candidates concurrently (bounded by n goroutines),
// then asks judge to select one. A candidate that errors is recorded but
// does not abort the others.
// If every candidate fails, AllFailed is set and Selected is nil — callers
// must leave the parent context unchanged and flag all_failed in their
// produced output rather than treating this as a PipelineError.
//
// The judge's response is expected to contain a bare integer. If it can't
// be parsed, or names an index outside [0, n), selection falls back to
// candidate 0 (the first successfully generated one).
func RunBestOfN(ctx context.Context, n int, generate GenerateFunc, judge JudgeFunc) (*BestOfNResult, error) {
	candidates := make([]any, n)
	errs := make([]error, n)

	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			c, err := generate(gCtx, i)
			if err != nil {
				errs[i] = err
				return nil
			}
			candidates[i] = c
			return nil
		})
	}
	_ = g.Wait() // per-candidate errors are embedded in errs, not returned

	var live []any
	var liveIdx []int
	for i, c := range candidates {
		if errs[i] == nil && c != nil {
			live = append(live, c)
			liveIdx = append(liveIdx, i)
		}
	}

	if len(live) == 0 {
		return &BestOfNResult{Candidates: candidates, CandidateErrs: errs, AllFailed: true}, nil
	}
	if len(live) == 1 {
		return &BestOfNResult{
			Candidates: candidates, CandidateErrs: errs,
			SelectedIndex: liveIdx[0], Selected: live[0],
		}, nil
	}

	raw, err := judge(ctx, live)
	selected := 0
	if err == nil {
		if idx, ok := parseSelection(raw, len(live)); ok {
			selected = idx
		}
	}

	return &BestOfNResult{
		Candidates:    candidates,
		CandidateErrs: errs,
		SelectedIndex: liveIdx[selected],
		Selected:      live[selected],
	}, nil
}

// parseSelection extracts the first bare integer from raw and reports
// whether it names a valid index into a slice of length n.
func parseSelection(raw string, n int) (int, bool) {
	raw = strings.TrimSpace(raw)
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	idx, err := strconv.Atoi(digits.String())
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}
