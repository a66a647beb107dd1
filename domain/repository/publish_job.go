package repository

import (
	"context"

	"media-publisher/domain/model"
)

// IPublishJob stores publish jobs keyed by job ID with a secondary lookup on
// the platform-assigned publish ID (the key webhooks resolve by).
// GetByPlatformPublishID returns model.ErrJobNotFound when no job matches.
type IPublishJob interface {
	Create(ctx context.Context, job *model.PublishJob) error
	GetByID(ctx context.Context, jobID string) (*model.PublishJob, error)
	GetByPlatformPublishID(ctx context.Context, platformPublishID string) (*model.PublishJob, error)
	// Update writes the job conditionally: the stored status must still rank
	// below job.Status. Returns model.ErrTransitionSuperseded when a
	// concurrent writer advanced the job first.
	Update(ctx context.Context, job *model.PublishJob) error
	// ListActive returns every job not yet in a terminal status, oldest first,
	// for the background reconciler.
	ListActive(ctx context.Context) ([]*model.PublishJob, error)
}
