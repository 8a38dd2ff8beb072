package analysis

import "context"

// Repo defines persistence operations for jobs.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Job, error)
	// Transition moves a job from one status to another. It returns
	// ErrInvalidTransition if the step is illegal or the stored status is
	// no longer from, and ErrNotFound if the job does not exist.
	Transition(ctx context.Context, jobID string, from, to Status, errorMessage string) error
	Counts(ctx context.Context) (total int, completed int, err error)
}
