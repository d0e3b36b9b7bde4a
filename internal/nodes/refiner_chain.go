package nodes

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/refiners"
)

// Evaluation is the subset of an evaluator capability the refiner chain
// needs to re-score a poem after each refiner pass, kept separate from
// the Evaluator node so the chain can be tested against a stub.
type Evaluation interface {
	Evaluate(ctx context.Context, c poem.Constraint, p poem.Poem) (poem.Quality, error)
}

// RefinerChain runs each applicable refiner in turn against a candidate
// poem, re-evaluating after every pass and discarding any pass that makes
// the score worse by more than epsilon (spec §4.6's safety rail). It
// requires "constraint", "poem", and "quality" and produces "poem",
// "quality", and "refinement_result".
type RefinerChain struct {
	Refiners      []refiners.Refiner
	Evaluator     Evaluation
	MaxIterations int
	TargetQuality float64
	Epsilon       float64
	ExitWhen      string // optional expr-lang predicate over {score, iteration, stalled}
}

func (c *RefinerChain) Execute(ctx context.Context, def *engine.NodeDefinition, pipelineCtx map[string]any) (map[string]any, error) {
	constraint, ok := pipelineCtx["constraint"].(poem.Constraint)
	if !ok {
		return nil, &poem.ValidationError{Message: "refiner chain: missing constraint"}
	}
	p, ok := pipelineCtx["poem"].(poem.Poem)
	if !ok {
		return nil, &poem.ValidationError{Message: "refiner chain: missing poem"}
	}
	q, ok := pipelineCtx["quality"].(poem.Quality)
	if !ok {
		return nil, &poem.ValidationError{Message: "refiner chain: missing quality"}
	}

	// MaxIterations==0 is a valid explicit configuration (spec §8 boundary:
	// "max_iterations=0 evaluates once and returns without refining"), so
	// unlike target below it is never defaulted here. Callers that want a
	// default iteration budget must set it when they build the node.
	maxIter := c.MaxIterations
	target := c.TargetQuality
	if target == 0 {
		target = 0.85
	}
	// Epsilon's default is 0.0 — the zero value already is the default, so
	// no substitution is needed: a refiner pass is never allowed to make
	// the score worse, full stop.
	epsilon := c.Epsilon

	result := poem.RefinementResult{Poem: p}
	stalled := false

	for iter := 1; iter <= maxIter; iter++ {
		if q.IsAcceptable || q.OverallScore >= target {
			result.TargetReached = true
			break
		}
		if c.shouldExit(q.OverallScore, iter, stalled) {
			break
		}

		ran := false
		for _, ref := range c.Refiners {
			if ctx.Err() != nil {
				return nil, &poem.CancelledError{Message: "refiner chain cancelled"}
			}
			if !ref.Applies(q) {
				continue
			}
			ran = true

			candidate, err := c.runRefiner(ctx, ref, constraint, p, q)
			step := poem.RefinementStep{Iteration: iter, RefinerName: ref.Name(), QualityBefore: q.OverallScore}

			if err != nil {
				step.Failed = true
				step.Details = err.Error()
				result.History = append(result.History, step)
				continue
			}

			newQ, err := c.Evaluator.Evaluate(ctx, constraint, candidate)
			if err != nil {
				step.Failed = true
				step.Details = err.Error()
				result.History = append(result.History, step)
				continue
			}

			step.QualityAfter = newQ.OverallScore
			step.Delta = newQ.OverallScore - q.OverallScore

			if step.Delta < -epsilon {
				step.Discarded = true
				result.History = append(result.History, step)
				continue
			}
			if step.Delta == 0 {
				step.NoChange = true
			}

			p, q = candidate, newQ
			result.History = append(result.History, step)
		}

		result.RefinersRun = appendUnique(result.RefinersRun, refinerNames(c.Refiners)...)
		result.Iterations = iter
		if !ran {
			stalled = true
			result.Stalled = true
			break
		}
	}

	p.Quality = &q
	result.Poem = p

	return map[string]any{
		"poem":              p,
		"quality":           q,
		"refinement_result": result,
	}, nil
}

func (c *RefinerChain) runRefiner(ctx context.Context, ref refiners.Refiner, constraint poem.Constraint, p poem.Poem, q poem.Quality) (candidate poem.Poem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &poem.PipelineError{Node: ref.Name(), Stage: "execute", Err: fmt.Errorf("refiner panicked: %v", r)}
		}
	}()
	return ref.Refine(ctx, constraint, p, q)
}

func (c *RefinerChain) shouldExit(score float64, iteration int, stalled bool) bool {
	if c.ExitWhen == "" {
		return false
	}
	env := map[string]any{"score": score, "iteration": iteration, "stalled": stalled}
	program, err := expr.Compile(c.ExitWhen, expr.Env(env))
	if err != nil {
		return false
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	truthy, _ := result.(bool)
	return truthy
}

func refinerNames(rs []refiners.Refiner) []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.Name()
	}
	return names
}

func appendUnique(dst []string, src ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			dst = append(dst, s)
			seen[s] = true
		}
	}
	return dst
}
