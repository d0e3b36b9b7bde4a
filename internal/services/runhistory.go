// Package services glues the engine, capture, and repository layers into
// the operations the API surface needs: starting runs, tracking their
// history, retrying failed ones, and fanning out their events over SSE.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/arabicverse/qasida/internal/poem"
	"github.com/arabicverse/qasida/internal/repository"
)

// RunHistoryService manages pipeline run records: the thin, queryable
// summary that outlives an Execution's retention window.
type RunHistoryService struct {
	runRepo repository.RunRepository
}

// NewRunHistoryService creates a RunHistoryService.
func NewRunHistoryService(runRepo repository.RunRepository) *RunHistoryService {
	return &RunHistoryService{runRepo: runRepo}
}

// StartRun creates a new RunRecord in running state.
func (s *RunHistoryService) StartRun(ctx context.Context, pipelineName, triggerType, triggerRef string, inputs map[string]any) (*poem.RunRecord, error) {
	now := time.Now()
	record := &poem.RunRecord{
		ID:           poem.GenerateID("run"),
		PipelineName: pipelineName,
		TriggerType:  triggerType,
		TriggerRef:   triggerRef,
		Status:       poem.RunStatusRunning,
		Inputs:       inputs,
		CreatedAt:    now,
		StartedAt:    &now,
	}
	if err := s.runRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateRunRetryMeta stamps a run record with its retry attempt number and,
// for attempts beyond the first, the run it retries.
func (s *RunHistoryService) UpdateRunRetryMeta(ctx context.Context, id string, attempt int, retryOf *string) error {
	record, err := s.runRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	record.RetryAttempt = attempt
	record.RetryOf = retryOf
	return s.runRepo.Update(ctx, record)
}

// CompleteRun marks a run successful, recording the produced outputs and,
// when the pipeline ran under capture, the Execution ID that holds the
// full call trace.
func (s *RunHistoryService) CompleteRun(ctx context.Context, id string, executionID string, outputs map[string]any) error {
	record, err := s.runRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	record.Status = poem.RunStatusSuccess
	record.ExecutionID = executionID
	record.Outputs = outputs
	record.CompletedAt = &now
	return s.runRepo.Update(ctx, record)
}

// FailRun marks a run as failed with an error message.
func (s *RunHistoryService) FailRun(ctx context.Context, id string, errMsg string) error {
	record, err := s.runRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now()
	record.Status = poem.RunStatusFailed
	record.Error = &errMsg
	record.CompletedAt = &now
	return s.runRepo.Update(ctx, record)
}

// UpdateNodeRun adds or updates a node's progress record within a run.
func (s *RunHistoryService) UpdateNodeRun(ctx context.Context, runID string, nodeRun poem.NodeRunRecord) error {
	record, err := s.runRepo.Get(ctx, runID)
	if err != nil {
		return err
	}

	found := false
	for i, nr := range record.NodeRuns {
		if nr.NodeID == nodeRun.NodeID {
			record.NodeRuns[i] = nodeRun
			found = true
			break
		}
	}
	if !found {
		record.NodeRuns = append(record.NodeRuns, nodeRun)
	}
	return s.runRepo.Update(ctx, record)
}

// GetRun retrieves a single run record.
func (s *RunHistoryService) GetRun(ctx context.Context, id string) (*poem.RunRecord, error) {
	return s.runRepo.Get(ctx, id)
}

// ListRuns returns runs for a specific pipeline with pagination.
func (s *RunHistoryService) ListRuns(ctx context.Context, pipelineName string, limit, offset int) ([]*poem.RunRecord, int, error) {
	return s.runRepo.ListByPipeline(ctx, pipelineName, limit, offset)
}

// ListAllRuns returns all runs with pagination. status filters by run
// status when non-empty.
func (s *RunHistoryService) ListAllRuns(ctx context.Context, limit, offset int, status string) ([]*poem.RunRecord, int, error) {
	return s.runRepo.ListAll(ctx, limit, offset, status)
}

// CleanupOrphanedRuns marks all runs left in RunStatusRunning as failed.
// Called once at server startup: a run left running across a process
// restart can never complete on its own.
func (s *RunHistoryService) CleanupOrphanedRuns(ctx context.Context) {
	type orphanCleaner interface {
		MarkOrphanedRunsFailed(ctx context.Context) (int64, error)
	}
	if c, ok := s.runRepo.(orphanCleaner); ok {
		n, err := c.MarkOrphanedRunsFailed(ctx)
		if err != nil {
			slog.Warn("failed to clean up orphaned runs", "err", err)
			return
		}
		if n > 0 {
			slog.Info("marked orphaned runs as failed", "count", n)
		}
	}
}
