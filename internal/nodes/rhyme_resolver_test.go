package nodes

import (
	"context"
	"testing"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
)

func TestRhymeResolverNoOpWhenLetterSet(t *testing.T) {
	llm := &fakeLLM{}
	r := &RhymeResolver{LLM: llm, Formatter: fakeFormatter{}, Rhymes: fakeRhymes{}}
	c := poem.Constraint{RhymeLetter: "ق"}

	out, err := r.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": c})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(llm.calls) != 0 {
		t.Fatalf("expected no LLM call when rhyme letter is already set")
	}
	if out["constraint"].(poem.Constraint).RhymeLetter != "ق" {
		t.Fatalf("expected rhyme letter preserved")
	}
}

func TestRhymeResolverInvokesLLMWhenMissing(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"rhyme_letter": "ق", "rhyme_harakah": "kasra"}`}}
	r := &RhymeResolver{LLM: llm, Formatter: fakeFormatter{}, Rhymes: fakeRhymes{}}
	c := poem.Constraint{}

	out, err := r.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": c})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	got := out["constraint"].(poem.Constraint)
	if got.RhymeLetter != "ق" || got.RhymeHarakah != poem.HarakahKasra {
		t.Fatalf("unexpected resolved constraint: %+v", got)
	}
}

func TestRhymeResolverDefaultsHarakahToFatha(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"rhyme_letter": "ق"}`}}
	r := &RhymeResolver{LLM: llm, Formatter: fakeFormatter{}, Rhymes: fakeRhymes{}}

	out, err := r.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": poem.Constraint{}})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if got := out["constraint"].(poem.Constraint).RhymeHarakah; got != poem.HarakahFatha {
		t.Fatalf("expected default harakah fatha, got %q", got)
	}
}
