package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/arabicverse/qasida/internal/poem"
)

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    pipeline_name TEXT NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'running',
    created_at    TIMESTAMPTZ NOT NULL,
    completed_at  TIMESTAMPTZ,
    payload       JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_pipeline_name ON runs(pipeline_name);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// EnsureRunsTable creates the runs table if it doesn't already exist, using
// the same connection pool OpenPostgres returned for the executions table.
func EnsureRunsTable(ctx context.Context, pool *sql.DB) error {
	if _, err := pool.ExecContext(ctx, createRunsTableSQL); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// PostgresRunRepository wraps a MemoryRunRepository with a PostgreSQL-backed
// store, same write-both/read-memory-first shape as PostgresExecutionRepository.
type PostgresRunRepository struct {
	mem *MemoryRunRepository
	db  *sql.DB
}

// NewPostgresRunRepository wraps mem with a Postgres-backed database.
func NewPostgresRunRepository(mem *MemoryRunRepository, database *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{mem: mem, db: database}
}

func (r *PostgresRunRepository) Create(ctx context.Context, run *poem.RunRecord) error {
	_ = r.mem.Create(ctx, run)

	payload, err := json.Marshal(run)
	if err != nil {
		slog.Warn("marshal run failed, in-memory only", "err", err)
		return nil
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO runs (id, pipeline_name, status, created_at, completed_at, payload)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET status = $3, completed_at = $5, payload = $6`,
		run.ID, run.PipelineName, run.Status, run.CreatedAt, nullableRunCompletion(run), payload,
	)
	if err != nil {
		slog.Warn("db create run failed, in-memory only", "err", err)
	}
	return nil
}

func nullableRunCompletion(run *poem.RunRecord) any {
	if run.CompletedAt == nil {
		return nil
	}
	return *run.CompletedAt
}

func (r *PostgresRunRepository) Get(ctx context.Context, id string) (*poem.RunRecord, error) {
	run, err := r.mem.Get(ctx, id)
	if err == nil {
		return run, nil
	}

	var payload []byte
	dbErr := r.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = $1`, id).Scan(&payload)
	if dbErr == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if dbErr != nil {
		return nil, err
	}

	var dbRun poem.RunRecord
	if jsonErr := json.Unmarshal(payload, &dbRun); jsonErr != nil {
		return nil, fmt.Errorf("unmarshal stored run: %w", jsonErr)
	}
	_ = r.mem.Create(ctx, &dbRun)
	return &dbRun, nil
}

func (r *PostgresRunRepository) Update(ctx context.Context, run *poem.RunRecord) error {
	_ = r.mem.Update(ctx, run)

	payload, err := json.Marshal(run)
	if err != nil {
		slog.Warn("marshal run failed, in-memory only", "err", err)
		return nil
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE runs SET status = $1, completed_at = $2, payload = $3 WHERE id = $4`,
		run.Status, nullableRunCompletion(run), payload, run.ID,
	)
	if err != nil {
		slog.Warn("db update run failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PostgresRunRepository) ListByPipeline(ctx context.Context, pipelineName string, limit, offset int) ([]*poem.RunRecord, int, error) {
	runs, total, err := r.listFromDB(ctx, "pipeline_name = $1", []any{pipelineName}, limit, offset)
	if err == nil {
		return runs, total, nil
	}
	slog.Warn("db list runs by pipeline failed, falling back to in-memory", "err", err)
	return r.mem.ListByPipeline(ctx, pipelineName, limit, offset)
}

func (r *PostgresRunRepository) ListAll(ctx context.Context, limit, offset int, status string) ([]*poem.RunRecord, int, error) {
	var where string
	var args []any
	if status != "" {
		where = "status = $1"
		args = []any{status}
	}
	runs, total, err := r.listFromDB(ctx, where, args, limit, offset)
	if err == nil {
		return runs, total, nil
	}
	slog.Warn("db list runs failed, falling back to in-memory", "err", err)
	return r.mem.ListAll(ctx, limit, offset, status)
}

func (r *PostgresRunRepository) listFromDB(ctx context.Context, where string, args []any, limit, offset int) ([]*poem.RunRecord, int, error) {
	countQuery := `SELECT COUNT(*) FROM runs`
	listQuery := `SELECT payload FROM runs`
	if where != "" {
		countQuery += " WHERE " + where
		listQuery += " WHERE " + where
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	listArgs := append(append([]any{}, args...), limit, offset)
	listQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*poem.RunRecord
	for rows.Next() {
		var payload []byte
		if scanErr := rows.Scan(&payload); scanErr != nil {
			return nil, 0, fmt.Errorf("scan run: %w", scanErr)
		}
		var run poem.RunRecord
		if jsonErr := json.Unmarshal(payload, &run); jsonErr != nil {
			return nil, 0, fmt.Errorf("unmarshal run: %w", jsonErr)
		}
		out = append(out, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}
	return out, total, nil
}

// MarkOrphanedRunsFailed satisfies the orphanCleaner interface
// services.RunHistoryService.CleanupOrphanedRuns type-asserts for, trying
// the database first and falling back to the in-memory copy.
func (r *PostgresRunRepository) MarkOrphanedRunsFailed(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = 'failed' WHERE status = 'running'`)
	if err != nil {
		slog.Warn("db mark orphaned runs failed, falling back to in-memory", "err", err)
		return r.mem.MarkOrphanedRunsFailed(ctx)
	}
	n, _ := res.RowsAffected()
	_, _ = r.mem.MarkOrphanedRunsFailed(ctx)
	return n, nil
}
