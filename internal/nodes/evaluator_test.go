package nodes

import (
	"context"
	"testing"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
)

func validConstraintAndPoem() (poem.Constraint, poem.Poem) {
	c := poem.Constraint{LineCount: 1, Meter: "kamil", MeterFeet: []string{"متفاعلن"}, RhymeLetter: "ق"}
	p := poem.Poem{Verses: []string{"opening", "closing"}}
	return c, p
}

func TestEvaluatorAllDimensionsValidIsAcceptable(t *testing.T) {
	valid := `{"is_valid": true, "summary": "ok"}`
	llm := &fakeLLM{responses: []string{valid, valid, valid}}
	e := &Evaluator{LLM: llm, Formatter: fakeFormatter{}, Meters: newFakeMeters(), AcceptThreshold: 0.85}
	c, p := validConstraintAndPoem()

	out, err := e.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": c, "poem": p})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	q := out["quality"].(poem.Quality)
	if !q.IsAcceptable {
		t.Fatalf("expected acceptable quality, got %+v", q)
	}
	if q.OverallScore != 1.0 {
		t.Fatalf("expected overall score 1.0 when every dimension is valid, got %v", q.OverallScore)
	}
}

func TestEvaluatorBahrUnknownWhenMeterUnresolved(t *testing.T) {
	valid := `{"is_valid": true, "summary": "ok"}`
	llm := &fakeLLM{responses: []string{valid, valid}} // rhyme + diacritics only; prosody skips the LLM
	e := &Evaluator{LLM: llm, Formatter: fakeFormatter{}, Meters: newFakeMeters(), AcceptThreshold: 0.85}
	c, p := validConstraintAndPoem()
	c.Meter = ""
	c.MeterFeet = nil

	out, err := e.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": c, "poem": p})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	q := out["quality"].(poem.Quality)
	if q.Prosody.IsValid {
		t.Fatalf("expected prosody invalid when meter unresolved")
	}
	found := false
	for _, issue := range q.Issues {
		if issue == "bahr_unknown" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bahr_unknown issue, got %v", q.Issues)
	}
}

func TestEvaluatorParseErrorOnMalformedDimensionResponse(t *testing.T) {
	valid := `{"is_valid": true, "summary": "ok"}`
	llm := &fakeLLM{responses: []string{valid, "not json at all", valid}}
	e := &Evaluator{LLM: llm, Formatter: fakeFormatter{}, Meters: newFakeMeters(), AcceptThreshold: 0.85}
	c, p := validConstraintAndPoem()

	out, err := e.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": c, "poem": p})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	q := out["quality"].(poem.Quality)
	if q.Rhyme.IsValid {
		t.Fatalf("expected rhyme dimension invalid on parse failure")
	}
	found := false
	for _, issue := range q.Issues {
		if issue == "parse_error" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected parse_error issue recorded, got %v", q.Issues)
	}
}

func TestEvaluatorMinProsodyFloorRejectsOtherwiseHighScore(t *testing.T) {
	invalidProsody := `{"is_valid": false, "summary": "bad scansion"}`
	valid := `{"is_valid": true, "summary": "ok"}`
	llm := &fakeLLM{responses: []string{invalidProsody, valid, valid}}
	e := &Evaluator{
		LLM: llm, Formatter: fakeFormatter{}, Meters: newFakeMeters(),
		Weights:         DimensionWeights{Prosody: 0.1, Rhyme: 0.3, LineCount: 0.3, Diacritics: 0.3},
		AcceptThreshold: 0.5,
		MinProsody:      0.9,
	}
	c, p := validConstraintAndPoem()

	out, err := e.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": c, "poem": p})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	q := out["quality"].(poem.Quality)
	if q.OverallScore < 0.5 {
		t.Fatalf("expected overall score to clear the low threshold, got %v", q.OverallScore)
	}
	if q.IsAcceptable {
		t.Fatalf("expected MinProsody floor to reject acceptance despite overall score %v", q.OverallScore)
	}
}

func TestEvaluatorMissingPoemErrors(t *testing.T) {
	e := &Evaluator{LLM: &fakeLLM{}, Formatter: fakeFormatter{}, Meters: newFakeMeters()}
	c, _ := validConstraintAndPoem()
	_, err := e.Execute(context.Background(), &engine.NodeDefinition{}, map[string]any{"constraint": c})
	if err == nil {
		t.Fatalf("expected an error when poem is missing")
	}
}
