package resumes

import "context"

// Repo persists resumes together with their version history.
// Create and Update each append one Version atomically with the resume write.
type Repo interface {
	Create(ctx context.Context, r *Resume) error
	Update(ctx context.Context, r *Resume) error
	// Get loads a resume and its versions regardless of owner.
	Get(ctx context.Context, id int64) (Resume, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Resume, error)
}
