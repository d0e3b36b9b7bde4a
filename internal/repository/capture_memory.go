package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/arabicverse/qasida/internal/poem"
)

const maxExecutionRecords = 1000

// MemoryExecutionRepository stores captured Executions in memory with FIFO
// eviction once maxExecutionRecords is reached.
type MemoryExecutionRepository struct {
	mu      sync.RWMutex
	records map[string]*poem.Execution
	order   []string // insertion order for FIFO eviction
}

// NewMemoryExecutionRepository returns an empty repository.
func NewMemoryExecutionRepository() *MemoryExecutionRepository {
	return &MemoryExecutionRepository{
		records: make(map[string]*poem.Execution),
	}
}

func (r *MemoryExecutionRepository) Create(_ context.Context, exec *poem.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) >= maxExecutionRecords {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.records, oldest)
	}

	r.records[exec.ID] = exec
	r.order = append(r.order, exec.ID)
	return nil
}

func (r *MemoryExecutionRepository) Get(_ context.Context, id string) (*poem.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return exec, nil
}

func (r *MemoryExecutionRepository) Update(_ context.Context, exec *poem.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[exec.ID]; !ok {
		return ErrNotFound
	}
	r.records[exec.ID] = exec
	return nil
}

func (r *MemoryExecutionRepository) ListAll(_ context.Context, limit, offset int, status string) ([]*poem.Execution, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*poem.Execution, 0, len(r.records))
	for _, exec := range r.records {
		if status == "" || exec.Status == status {
			all = append(all, exec)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].StartedAt.After(all[j].StartedAt)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total || limit <= 0 {
		end = total
	}
	return all[offset:end], total, nil
}
