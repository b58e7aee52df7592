package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryRunJournal implements RunJournal in process memory.
type MemoryRunJournal struct {
	runs map[string]time.Time
	mu   sync.RWMutex
}

// NewMemoryRunJournal creates an empty journal.
func NewMemoryRunJournal() *MemoryRunJournal {
	return &MemoryRunJournal{runs: make(map[string]time.Time)}
}

func (j *MemoryRunJournal) LastRun(_ context.Context, job string) (time.Time, bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	d, ok := j.runs[job]
	return d, ok, nil
}

func (j *MemoryRunJournal) RecordRun(_ context.Context, job string, runDate time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs[job] = runDate
	return nil
}
