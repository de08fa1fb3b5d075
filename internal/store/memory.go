package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/insightdelivered/statementlens/internal/jobs"
)

// Memory keeps jobs in a map. It is used by tests and the CLI.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]jobs.Job
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]jobs.Job)}
}

func (m *Memory) Create(_ context.Context, job *jobs.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	job.Version = 1
	m.jobs[job.ID] = *job
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*jobs.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &j, nil
}

func (m *Memory) Update(_ context.Context, job *jobs.Job) (*jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.jobs[job.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if cur.Version != job.Version {
		return nil, ErrVersionConflict
	}
	next := *job
	next.Version++
	m.jobs[job.ID] = next
	return &next, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
