package nodes

import (
	"context"
	"testing"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
)

func TestConstraintParserHappyPath(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`Here is the JSON: {"meter": "kamil", "rhyme_letter": "ق", "line_count": 2, "theme": "love"} thanks`,
	}}
	p := &ConstraintParser{LLM: llm, Formatter: fakeFormatter{}, Meters: newFakeMeters(), Rhymes: fakeRhymes{}}

	out, err := p.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"user_prompt": "اكتب بيتين في الحب"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	c := out["constraint"].(poem.Constraint)
	if c.Meter != "kamil" {
		t.Fatalf("expected meter to canonicalize to kamil, got %q", c.Meter)
	}
	if len(c.MeterFeet) == 0 {
		t.Fatalf("expected meter_feet to be populated once meter resolved")
	}
	if c.RhymeLetter != "ق" {
		t.Fatalf("expected rhyme letter ق, got %q", c.RhymeLetter)
	}
	if c.LineCount != 2 {
		t.Fatalf("expected line_count 2, got %d", c.LineCount)
	}
	if c.OriginalPrompt != "اكتب بيتين في الحب" {
		t.Fatalf("expected original_prompt preserved verbatim")
	}
}

func TestConstraintParserDefaultsLineCount(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"theme": "love"}`}}
	p := &ConstraintParser{LLM: llm, Formatter: fakeFormatter{}, Meters: newFakeMeters(), Rhymes: fakeRhymes{}}

	out, err := p.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"user_prompt": "something"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	c := out["constraint"].(poem.Constraint)
	if c.LineCount != 8 {
		t.Fatalf("expected default line_count 8, got %d", c.LineCount)
	}
}

func TestConstraintParserUnrecognizedMeterGoesToAmbiguities(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"meter": "بحر غير موجود", "line_count": 4}`}}
	p := &ConstraintParser{LLM: llm, Formatter: fakeFormatter{}, Meters: newFakeMeters(), Rhymes: fakeRhymes{}}

	out, err := p.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"user_prompt": "something"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	c := out["constraint"].(poem.Constraint)
	if c.Meter != "" {
		t.Fatalf("expected meter to be cleared when unrecognized, got %q", c.Meter)
	}
	if len(c.Ambiguities) == 0 {
		t.Fatalf("expected the unrecognized meter to be noted in ambiguities")
	}
}

func TestConstraintParserEmptyPromptErrors(t *testing.T) {
	p := &ConstraintParser{LLM: &fakeLLM{}, Formatter: fakeFormatter{}, Meters: newFakeMeters(), Rhymes: fakeRhymes{}}
	_, err := p.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"user_prompt": ""})
	if err == nil {
		t.Fatalf("expected an error for an empty user_prompt")
	}
}

func TestConstraintParserNoJSONInResponse(t *testing.T) {
	llm := &fakeLLM{responses: []string{"I refuse to produce JSON today."}}
	p := &ConstraintParser{LLM: llm, Formatter: fakeFormatter{}, Meters: newFakeMeters(), Rhymes: fakeRhymes{}}
	_, err := p.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"user_prompt": "x"})
	if err == nil {
		t.Fatalf("expected a ParseError when the LLM response has no JSON")
	}
}
