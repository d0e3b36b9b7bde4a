// Package refiners holds the specialist refiners the refiner chain
// (internal/nodes/refiner_chain.go) runs over a candidate poem, each
// targeting exactly one evaluator dimension (spec §4.6).
package refiners

import (
	"context"

	"github.com/arabicverse/qasida/internal/poem"
)

// Refiner fixes one failing evaluator dimension on a poem. Applies
// reports whether this refiner's dimension currently fails (the chain
// skips refiners whose dimension already passes); Refine returns an
// improved poem without re-scoring it — the chain re-runs the evaluator
// and decides whether to keep or discard the result.
type Refiner interface {
	Name() string
	Affects() string // evaluator dimension this refiner targets
	Applies(q poem.Quality) bool
	Refine(ctx context.Context, c poem.Constraint, p poem.Poem, q poem.Quality) (poem.Poem, error)
}
