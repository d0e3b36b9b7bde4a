package nodes

import (
	"context"
	"testing"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
)

func TestGeneratorSingleCandidate(t *testing.T) {
	llm := &fakeLLM{responses: []string{"opening one\nclosing one\nopening two\nclosing two"}}
	g := &Generator{LLM: llm, Formatter: fakeFormatter{}, Provider: "openai", Model: "gpt-test"}
	c := poem.Constraint{LineCount: 2, Meter: "kamil", RhymeLetter: "ق"}

	out, err := g.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": c})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	p := out["poem"].(poem.Poem)
	if len(p.Verses) != 4 {
		t.Fatalf("expected 4 verses (2*line_count), got %d", len(p.Verses))
	}
	if p.Provider != "openai" || p.Model != "gpt-test" {
		t.Fatalf("expected provider/model stamped on the poem, got %q/%q", p.Provider, p.Model)
	}
}

func TestGeneratorBestOfNEquivalentToSingleWhenNIsOne(t *testing.T) {
	llm := &fakeLLM{responses: []string{"a\nb"}}
	g := &Generator{LLM: llm, Formatter: fakeFormatter{}, Provider: "openai", Model: "m"}
	def := &engine.NodeDefinition{Config: map[string]any{"best_of_n": 1}}

	out, err := g.Execute(context.Background(), def, map[string]any{"constraint": poem.Constraint{LineCount: 1}})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	p := out["poem"].(poem.Poem)
	if len(p.Verses) != 2 {
		t.Fatalf("expected 2 verses, got %d", len(p.Verses))
	}
}

func TestGeneratorBestOfNSelectsJudgeChoice(t *testing.T) {
	// Three identical generation candidates (generateOne doesn't vary its
	// prompt by candidate slot, so the queued responses race across
	// goroutines) followed by the judge call; only the judge response's
	// selection behavior is asserted, not which queued string landed where.
	llm := &fakeLLM{responses: []string{
		"o0\nc0",
		"o1\nc1",
		"o2\nc2",
		"1",
	}}
	g := &Generator{LLM: llm, Formatter: fakeFormatter{}, Provider: "openai", Model: "m"}
	def := &engine.NodeDefinition{Config: map[string]any{"best_of_n": 3}}

	out, err := g.Execute(context.Background(), def, map[string]any{"constraint": poem.Constraint{LineCount: 1}})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	p := out["poem"].(poem.Poem)
	if len(p.Verses) != 2 {
		t.Fatalf("expected a 2-verse candidate selected, got %v", p.Verses)
	}
	if len(llm.calls) != 4 {
		t.Fatalf("expected 3 generation calls + 1 judge call, got %d", len(llm.calls))
	}
}

func TestGeneratorParsesPlainLinesNotJSON(t *testing.T) {
	llm := &fakeLLM{responses: []string{"\n  opening one  \n\nclosing one\n   \nopening two\nclosing two\n"}}
	g := &Generator{LLM: llm, Formatter: fakeFormatter{}, Provider: "openai", Model: "gpt-test"}
	c := poem.Constraint{LineCount: 2}

	out, err := g.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": c})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	p := out["poem"].(poem.Poem)
	want := []string{"opening one", "closing one", "opening two", "closing two"}
	if len(p.Verses) != len(want) {
		t.Fatalf("expected %d verses, got %d: %v", len(want), len(p.Verses), p.Verses)
	}
	for i, v := range want {
		if p.Verses[i] != v {
			t.Fatalf("verse %d: expected %q, got %q", i, v, p.Verses[i])
		}
	}
}

func TestGeneratorMissingConstraintErrors(t *testing.T) {
	g := &Generator{LLM: &fakeLLM{}, Formatter: fakeFormatter{}}
	_, err := g.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{})
	if err == nil {
		t.Fatalf("expected a ValidationError when constraint is missing")
	}
}
