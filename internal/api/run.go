package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arabicverse/qasida/internal/engine"
	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/services"
)

// RunRequest is the JSON body for POST /api/runs.
type RunRequest struct {
	UserPrompt string `json:"user_prompt"`
}

// createRun starts a pipeline run in the background and returns the run ID
// immediately. Clients connect to GET /api/runs/{id}/events to stream
// progress via SSE.
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserPrompt == "" {
		http.Error(w, "user_prompt is required", http.StatusBadRequest)
		return
	}

	record, err := s.history.StartRun(r.Context(), "qasida", "manual", "", map[string]any{"user_prompt": req.UserPrompt})
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to start run: %v", err), http.StatusInternalServerError)
		return
	}

	s.runManager.Register(record.ID)
	go s.executeRunBackground(record.ID, req.UserPrompt)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"run_id": record.ID})
}

// executeRunBackground runs the pipeline with a detached context, fanning
// every event the run publishes into the RunManager's buffer and the run
// record's node-level status.
func (s *Server) executeRunBackground(runID, userPrompt string) {
	ctx := context.Background()

	exec, err := s.runner.RunWithEvents(ctx, userPrompt, func(ev engine.Event) {
		s.trackNodeRun(ctx, runID, ev)
		s.runManager.Append(runID, services.EventRecord{
			Type:    string(ev.Type),
			NodeID:  ev.NodeID,
			Payload: eventPayload(ev),
		})
	})
	if err != nil {
		slog.Error("run failed", "run_id", runID, "err", err)
		_ = s.history.FailRun(ctx, runID, err.Error())
		s.runManager.Fail(runID, err.Error())
		return
	}

	donePayload := map[string]any{
		"status":       "completed",
		"execution_id": exec.ID,
		"run_id":       runID,
	}
	if exec.FinalPoem != nil {
		donePayload["poem"] = exec.FinalPoem
	}

	_ = s.history.CompleteRun(ctx, runID, exec.ID, map[string]any{"status": exec.Status})
	s.runManager.Complete(runID, donePayload)
}

func eventPayload(ev engine.Event) map[string]any {
	if m, ok := ev.Payload.(map[string]any); ok {
		return m
	}
	if ev.Payload == nil {
		return map[string]any{}
	}
	return map[string]any{"value": ev.Payload}
}

// trackNodeRun updates the run record with node-level execution status.
func (s *Server) trackNodeRun(ctx context.Context, runID string, ev engine.Event) {
	if ev.NodeID == "" {
		return
	}
	now := time.Now()
	switch ev.Type {
	case engine.EventNodeStarted:
		_ = s.history.UpdateNodeRun(ctx, runID, poem.NodeRunRecord{NodeID: ev.NodeID, Status: "running", StartedAt: now})
	case engine.EventNodeCompleted:
		_ = s.history.UpdateNodeRun(ctx, runID, poem.NodeRunRecord{NodeID: ev.NodeID, Status: "completed", StartedAt: now, CompletedAt: &now})
	case engine.EventNodeError:
		_ = s.history.UpdateNodeRun(ctx, runID, poem.NodeRunRecord{NodeID: ev.NodeID, Status: "failed", StartedAt: now, CompletedAt: &now})
	}
}

// streamRunEvents streams a run's events via SSE, replaying buffered
// events from Last-Event-ID onward for reconnecting clients.
func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	lastSeq := -1
	if idStr := r.Header.Get("Last-Event-ID"); idStr != "" {
		if n, err := strconv.Atoi(idStr); err == nil {
			lastSeq = n
		}
	}
	startSeq := lastSeq + 1

	events, notify, done, donePayload, found := s.runManager.Subscribe(runID, startSeq)
	if !found {
		if record, err := s.history.GetRun(r.Context(), runID); err == nil {
			s.sendSyntheticDone(w, record)
			return
		}
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, ev := range events {
		writeSSEEvent(w, ev)
	}
	flusher.Flush()

	if done {
		writeDoneEvent(w, donePayload)
		flusher.Flush()
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-notify:
			nextSeq := startSeq + len(events)
			events, notify, done, donePayload, found = s.runManager.Subscribe(runID, nextSeq)
			if !found {
				return
			}
			startSeq = nextSeq

			for _, ev := range events {
				writeSSEEvent(w, ev)
			}
			flusher.Flush()

			if done {
				writeDoneEvent(w, donePayload)
				flusher.Flush()
				return
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, ev services.EventRecord) {
	data, _ := json.Marshal(ev.Payload)
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Type, data)
}

func writeDoneEvent(w http.ResponseWriter, payload map[string]any) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
}

// sendSyntheticDone sends a minimal SSE stream carrying only a synthetic
// done event, for a run whose event buffer has already been garbage
// collected but whose record still exists in run history.
func (s *Server) sendSyntheticDone(w http.ResponseWriter, record *poem.RunRecord) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	payload := map[string]any{
		"status":       string(record.Status),
		"execution_id": record.ExecutionID,
		"run_id":       record.ID,
	}
	if record.Error != nil {
		payload["error"] = *record.Error
	}
	writeDoneEvent(w, payload)
	flusher.Flush()
}
