package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/arabicverse/qasida/internal/poem"
)

const createExecutionsTableSQL = `
CREATE TABLE IF NOT EXISTS executions (
    id           TEXT PRIMARY KEY,
    status       TEXT NOT NULL DEFAULT 'running',
    started_at   TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ,
    payload      JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_executions_status ON executions(status);
CREATE INDEX IF NOT EXISTS idx_executions_started_at ON executions(started_at);
`

// OpenPostgres opens a connection pool against a Postgres database and
// ensures the executions table exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.ExecContext(ctx, createExecutionsTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create executions table: %w", err)
	}
	return pool, nil
}

// PostgresExecutionRepository wraps a MemoryExecutionRepository with a
// PostgreSQL-backed store. Writes go to both; a database failure is logged
// but never fails the write, since the in-memory copy still serves reads.
// Reads try memory first, falling back to the database on a miss.
type PostgresExecutionRepository struct {
	mem *MemoryExecutionRepository
	db  *sql.DB
}

// NewPostgresExecutionRepository wraps mem with a Postgres-backed database.
func NewPostgresExecutionRepository(mem *MemoryExecutionRepository, database *sql.DB) *PostgresExecutionRepository {
	return &PostgresExecutionRepository{mem: mem, db: database}
}

func (r *PostgresExecutionRepository) Create(ctx context.Context, exec *poem.Execution) error {
	_ = r.mem.Create(ctx, exec)

	payload, err := json.Marshal(exec)
	if err != nil {
		slog.Warn("marshal execution failed, in-memory only", "err", err)
		return nil
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO executions (id, status, started_at, completed_at, payload)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET status = $2, completed_at = $4, payload = $5`,
		exec.ID, exec.Status, exec.StartedAt, nullableTime(exec.CompletedAt), payload,
	)
	if err != nil {
		slog.Warn("db create execution failed, in-memory only", "err", err)
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (r *PostgresExecutionRepository) Get(ctx context.Context, id string) (*poem.Execution, error) {
	exec, err := r.mem.Get(ctx, id)
	if err == nil {
		return exec, nil
	}

	var payload []byte
	dbErr := r.db.QueryRowContext(ctx, `SELECT payload FROM executions WHERE id = $1`, id).Scan(&payload)
	if dbErr == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if dbErr != nil {
		return nil, err // surface the original ErrNotFound
	}

	var dbExec poem.Execution
	if jsonErr := json.Unmarshal(payload, &dbExec); jsonErr != nil {
		return nil, fmt.Errorf("unmarshal stored execution: %w", jsonErr)
	}
	_ = r.mem.Create(ctx, &dbExec)
	return &dbExec, nil
}

func (r *PostgresExecutionRepository) Update(ctx context.Context, exec *poem.Execution) error {
	_ = r.mem.Update(ctx, exec)

	payload, err := json.Marshal(exec)
	if err != nil {
		slog.Warn("marshal execution failed, in-memory only", "err", err)
		return nil
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE executions SET status = $1, completed_at = $2, payload = $3 WHERE id = $4`,
		exec.Status, nullableTime(exec.CompletedAt), payload, exec.ID,
	)
	if err != nil {
		slog.Warn("db update execution failed, in-memory only", "err", err)
	}
	return nil
}

func (r *PostgresExecutionRepository) ListAll(ctx context.Context, limit, offset int, status string) ([]*poem.Execution, int, error) {
	execs, total, err := r.listAllFromDB(ctx, limit, offset, status)
	if err == nil {
		return execs, total, nil
	}
	slog.Warn("db list executions failed, falling back to in-memory", "err", err)
	return r.mem.ListAll(ctx, limit, offset, status)
}

func (r *PostgresExecutionRepository) listAllFromDB(ctx context.Context, limit, offset int, status string) ([]*poem.Execution, int, error) {
	var total int
	var countErr error
	if status == "" {
		countErr = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM executions`).Scan(&total)
	} else {
		countErr = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM executions WHERE status = $1`, status).Scan(&total)
	}
	if countErr != nil {
		return nil, 0, fmt.Errorf("count executions: %w", countErr)
	}

	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT payload FROM executions ORDER BY started_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT payload FROM executions WHERE status = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
			status, limit, offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []*poem.Execution
	for rows.Next() {
		var payload []byte
		if scanErr := rows.Scan(&payload); scanErr != nil {
			return nil, 0, fmt.Errorf("scan execution: %w", scanErr)
		}
		var exec poem.Execution
		if jsonErr := json.Unmarshal(payload, &exec); jsonErr != nil {
			return nil, 0, fmt.Errorf("unmarshal execution: %w", jsonErr)
		}
		out = append(out, &exec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate executions: %w", err)
	}
	return out, total, nil
}
