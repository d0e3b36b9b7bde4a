// Package repository persists captured pipeline Executions, supplemented
// with a run-history service for querying past runs.
package repository

import (
	"context"
	"errors"

	"github.com/arabicverse/qasida/internal/poem"
)

// ErrNotFound is returned when an Execution ID has no matching record.
var ErrNotFound = errors.New("execution not found")

// ExecutionRepository abstracts persistence for captured Executions.
type ExecutionRepository interface {
	Create(ctx context.Context, exec *poem.Execution) error
	Get(ctx context.Context, id string) (*poem.Execution, error)
	Update(ctx context.Context, exec *poem.Execution) error
	ListAll(ctx context.Context, limit, offset int, status string) ([]*poem.Execution, int, error)
}
