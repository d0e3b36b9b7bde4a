package repository

import (
	"context"

	"github.com/arabicverse/qasida/internal/poem"
)

// RunRepository abstracts persistence for RunRecords, the thin run-history
// ledger the services layer builds on top of the capture subsystem's
// detailed Executions.
type RunRepository interface {
	Create(ctx context.Context, run *poem.RunRecord) error
	Get(ctx context.Context, id string) (*poem.RunRecord, error)
	Update(ctx context.Context, run *poem.RunRecord) error
	ListByPipeline(ctx context.Context, pipelineName string, limit, offset int) ([]*poem.RunRecord, int, error)
	ListAll(ctx context.Context, limit, offset int, status string) ([]*poem.RunRecord, int, error)
}
