package repository

import (
	"context"

	"media-publisher/domain/model"
)

// IJobNotifier fans a job status change out to interested consumers
// (message bus, SSE stream). Best-effort; failures never block a transition.
type IJobNotifier interface {
	NotifyJobStatus(ctx context.Context, job *model.PublishJob) error
}
