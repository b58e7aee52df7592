package cache

import (
	"context"
	"time"
)

// RunJournal remembers the last run date of each batch job.
type RunJournal interface {
	// LastRun returns the date recorded for job; ok is false when the job never ran.
	LastRun(ctx context.Context, job string) (runDate time.Time, ok bool, err error)
	RecordRun(ctx context.Context, job string, runDate time.Time) error
}
