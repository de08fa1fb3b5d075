package jobs

import "context"

// Store persists jobs.
//
// Create stores a new job with Version 1. Update succeeds only when the
// stored version equals job.Version; it writes the job with the version
// incremented and UpdatedAt refreshed and returns the stored record.
// Otherwise it returns ErrVersionConflict, or ErrNotFound.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, job *Job) (*Job, error)
}
