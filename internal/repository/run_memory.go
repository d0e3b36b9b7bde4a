package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/arabicverse/qasida/internal/poem"
)

const maxRunRecords = 1000

// MemoryRunRepository stores RunRecords in memory with FIFO eviction once
// maxRunRecords is reached, mirroring MemoryExecutionRepository.
type MemoryRunRepository struct {
	mu      sync.RWMutex
	records map[string]*poem.RunRecord
	order   []string
}

// NewMemoryRunRepository returns an empty repository.
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{records: make(map[string]*poem.RunRecord)}
}

func (r *MemoryRunRepository) Create(_ context.Context, run *poem.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) >= maxRunRecords {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.records, oldest)
	}

	r.records[run.ID] = run
	r.order = append(r.order, run.ID)
	return nil
}

func (r *MemoryRunRepository) Get(_ context.Context, id string) (*poem.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return run, nil
}

func (r *MemoryRunRepository) Update(_ context.Context, run *poem.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[run.ID]; !ok {
		return ErrNotFound
	}
	r.records[run.ID] = run
	return nil
}

func (r *MemoryRunRepository) ListByPipeline(_ context.Context, pipelineName string, limit, offset int) ([]*poem.RunRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matching []*poem.RunRecord
	for _, run := range r.records {
		if run.PipelineName == pipelineName {
			matching = append(matching, run)
		}
	}
	return paginateRuns(matching, limit, offset)
}

func (r *MemoryRunRepository) ListAll(_ context.Context, limit, offset int, status string) ([]*poem.RunRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matching []*poem.RunRecord
	for _, run := range r.records {
		if status == "" || string(run.Status) == status {
			matching = append(matching, run)
		}
	}
	return paginateRuns(matching, limit, offset)
}

// MarkOrphanedRunsFailed fails every run still in RunStatusRunning, for
// cleanup at server startup (a run left running across a process restart
// can never complete).
func (r *MemoryRunRepository) MarkOrphanedRunsFailed(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	msg := "orphaned: server restarted while this run was in progress"
	for _, run := range r.records {
		if run.Status == poem.RunStatusRunning {
			run.Status = poem.RunStatusFailed
			run.Error = &msg
			n++
		}
	}
	return n, nil
}

func paginateRuns(all []*poem.RunRecord, limit, offset int) ([]*poem.RunRecord, int, error) {
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
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
