package refiners

import (
	"context"
	"testing"

	"github.com/arabicverse/qasida/internal/poem"
)

func TestLineCountRefinerAppliesOnlyWhenInvalid(t *testing.T) {
	r := &LineCountRefiner{}
	if r.Applies(poem.Quality{LineCount: poem.DimensionResult{IsValid: true}}) {
		t.Fatalf("expected Applies false when line count already valid")
	}
	if !r.Applies(poem.Quality{LineCount: poem.DimensionResult{IsValid: false}}) {
		t.Fatalf("expected Applies true when line count invalid")
	}
}

func TestLineCountRefinerRewritesWholePoem(t *testing.T) {
	llm := &fakeLLM{responses: []string{`["o1", "c1", "o2", "c2"]`}}
	r := &LineCountRefiner{LLM: llm, Formatter: fakeFormatter{}}
	p := poem.Poem{Verses: []string{"o1", "c1"}, Quality: &poem.Quality{OverallScore: 0.5}}
	c := poem.Constraint{LineCount: 2}

	out, err := r.Refine(context.Background(), c, p, poem.Quality{})
	if err != nil {
		t.Fatalf("Refine returned error: %v", err)
	}
	if len(out.Verses) != 4 {
		t.Fatalf("expected 4 verses after extension to line_count=2, got %d", len(out.Verses))
	}
	if out.Quality != nil {
		t.Fatalf("expected Quality cleared after a whole-poem rewrite")
	}
}

func TestLineCountRefinerMalformedResponseErrors(t *testing.T) {
	llm := &fakeLLM{responses: []string{"not an array"}}
	r := &LineCountRefiner{LLM: llm, Formatter: fakeFormatter{}}
	p := poem.Poem{Verses: []string{"o1", "c1"}}

	_, err := r.Refine(context.Background(), poem.Constraint{LineCount: 2}, p, poem.Quality{})
	if err == nil {
		t.Fatalf("expected a ParseError for a malformed line count rewrite response")
	}
}
