package poem

import (
	"errors"
	"testing"
)

func TestLLMErrorUnwrap(t *testing.T) {
	cause := errors.New("transport reset")
	err := &LLMError{Provider: "openai", Message: cause.Error(), Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should see through LLMError.Unwrap to the cause")
	}
}

func TestPipelineErrorMessage(t *testing.T) {
	cause := errors.New("missing key")
	err := &PipelineError{Node: "generator", Stage: "input", Err: cause}
	want := `pipeline error: node "generator" stage "input": missing key`
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is should see through PipelineError.Unwrap to the cause")
	}
}

func TestMeterErrorIncludesCandidates(t *testing.T) {
	err := &MeterError{Message: "unknown meter", Candidates: []string{"tawil", "kamil"}}
	got := err.Error()
	if got == "meter error: unknown meter" {
		t.Fatalf("Error() should include candidates when present, got %q", got)
	}
}
