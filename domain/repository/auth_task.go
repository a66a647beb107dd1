package repository

import (
	"context"
	"time"

	"media-publisher/domain/model"
)

// IAuthTaskStore keeps short-lived authorization tasks keyed by state token.
// Entries expire on their own; a dangling consent flow is simply forgotten.
// Get returns (nil, nil) for a missing or expired task.
type IAuthTaskStore interface {
	Save(ctx context.Context, task *model.AuthorizationTask, ttl time.Duration) error
	Get(ctx context.Context, state string) (*model.AuthorizationTask, error)
	Extend(ctx context.Context, state string, ttl time.Duration) error
}
