package capture

import (
	"errors"
	"testing"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
)

func TestRecorderStartExecutionAndRetrieve(t *testing.T) {
	r := NewRecorder()
	exec := r.StartExecution("sess-1", "write me a poem")
	if exec.Status != "running" {
		t.Fatalf("expected status running, got %q", exec.Status)
	}
	got, ok := r.Execution("sess-1")
	if !ok || got.ID != exec.ID {
		t.Fatalf("expected to retrieve the registered execution")
	}
}

func TestRecorderBeginRecordsSuccessfulCall(t *testing.T) {
	r := NewRecorder()
	r.StartExecution("sess-1", "prompt")

	complete := r.Begin("sess-1", "node-1", engine.NodeTypeGenerator, map[string]any{"constraint": "x"})
	complete(map[string]any{"poem": "verses"}, nil)

	exec, _ := r.Execution("sess-1")
	if len(exec.Calls) != 1 {
		t.Fatalf("expected one captured call, got %d", len(exec.Calls))
	}
	call := exec.Calls[0]
	if !call.Success || call.Type != poem.CallGenerate || call.Component != "node-1" {
		t.Fatalf("unexpected captured call: %+v", call)
	}
}

func TestRecorderBeginRecordsFailedCall(t *testing.T) {
	r := NewRecorder()
	r.StartExecution("sess-1", "prompt")

	complete := r.Begin("sess-1", "node-1", engine.NodeTypeEvaluator, nil)
	complete(nil, errors.New("boom"))

	exec, _ := r.Execution("sess-1")
	call := exec.Calls[0]
	if call.Success || call.Error != "boom" || call.Type != poem.CallEvaluate {
		t.Fatalf("unexpected captured failed call: %+v", call)
	}
}

func TestRecorderBeginIgnoresUnknownSession(t *testing.T) {
	r := NewRecorder()
	complete := r.Begin("missing", "node-1", engine.NodeTypeGenerator, nil)
	complete("ok", nil) // must not panic
}

func TestRecorderFinishSetsFinalState(t *testing.T) {
	r := NewRecorder()
	r.StartExecution("sess-1", "prompt")
	finalPoem := &poem.Poem{Verses: []string{"a", "b"}}
	finalQuality := &poem.Quality{OverallScore: 0.9}

	r.Finish("sess-1", finalPoem, finalQuality, "completed")

	exec, _ := r.Execution("sess-1")
	if exec.Status != "completed" || exec.FinalPoem != finalPoem || exec.FinalQuality != finalQuality {
		t.Fatalf("expected execution finalized, got %+v", exec)
	}
	if exec.CompletedAt.IsZero() {
		t.Fatalf("expected CompletedAt to be set")
	}
}

func TestCallTypeForMapsNodeTypes(t *testing.T) {
	cases := map[engine.NodeType]poem.CallType{
		engine.NodeTypeConstraintParser: poem.CallParse,
		engine.NodeTypeMeterResolver:    poem.CallEnrich,
		engine.NodeTypeRhymeResolver:    poem.CallEnrich,
		engine.NodeTypeGenerator:        poem.CallGenerate,
		engine.NodeTypeEvaluator:        poem.CallEvaluate,
		engine.NodeTypeRefinerChain:     poem.CallRefine,
		engine.NodeType("custom"):       poem.CallProcess,
	}
	for nt, want := range cases {
		if got := callTypeFor(nt); got != want {
			t.Fatalf("callTypeFor(%q) = %q, want %q", nt, got, want)
		}
	}
}
