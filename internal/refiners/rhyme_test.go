package refiners

import (
	"context"
	"testing"

	"github.com/arabicverse/qasida/internal/poem"
)

func TestRhymeRefinerAppliesOnlyWhenInvalid(t *testing.T) {
	r := &RhymeRefiner{}
	if r.Applies(poem.Quality{Rhyme: poem.DimensionResult{IsValid: true}}) {
		t.Fatalf("expected Applies false when rhyme already valid")
	}
	if !r.Applies(poem.Quality{Rhyme: poem.DimensionResult{IsValid: false}}) {
		t.Fatalf("expected Applies true when rhyme invalid")
	}
}

func TestRhymeRefinerRewritesFailingBait(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"opening": "new o", "closing": "new c"}`}}
	r := &RhymeRefiner{LLM: llm, Formatter: fakeFormatter{}}
	p := poem.Poem{Verses: []string{"o1", "c1"}}
	q := poem.Quality{Rhyme: poem.DimensionResult{PerBaitResults: []bool{false}, Issues: []string{"rhyme letter mismatch"}}}

	out, err := r.Refine(context.Background(), poem.Constraint{RhymeLetter: "ق"}, p, q)
	if err != nil {
		t.Fatalf("Refine returned error: %v", err)
	}
	if out.Verses[0] != "new o" || out.Verses[1] != "new c" {
		t.Fatalf("expected rewritten bait, got %v", out.Verses)
	}
}

func TestRhymeRefinerNoFailingBaitReturnsUnchanged(t *testing.T) {
	r := &RhymeRefiner{LLM: &fakeLLM{}, Formatter: fakeFormatter{}}
	p := poem.Poem{Verses: []string{"o1", "c1"}}
	q := poem.Quality{Rhyme: poem.DimensionResult{PerBaitResults: []bool{true}}}

	out, err := r.Refine(context.Background(), poem.Constraint{}, p, q)
	if err != nil {
		t.Fatalf("Refine returned error: %v", err)
	}
	if out.Verses[0] != "o1" {
		t.Fatalf("expected poem unchanged, got %v", out.Verses)
	}
}
