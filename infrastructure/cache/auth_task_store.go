package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"media-publisher/domain/model"
	"media-publisher/domain/repository"

	"github.com/redis/go-redis/v9"
)

// AuthTaskStore keeps pending consent flows in Redis under their state token.
// Redis TTL handles expiry; an expired task reads back as a plain miss.
type AuthTaskStore struct {
	client *redis.Client
}

func NewAuthTaskStore(client *redis.Client) repository.IAuthTaskStore {
	return &AuthTaskStore{client: client}
}

func authTaskKey(state string) string {
	return fmt.Sprintf("auth:task:%s", state)
}

func (s *AuthTaskStore) Save(ctx context.Context, task *model.AuthorizationTask, ttl time.Duration) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, authTaskKey(task.State), raw, ttl).Err()
}

func (s *AuthTaskStore) Get(ctx context.Context, state string) (*model.AuthorizationTask, error) {
	raw, err := s.client.Get(ctx, authTaskKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	task := &model.AuthorizationTask{}
	if err := json.Unmarshal([]byte(raw), task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *AuthTaskStore) Extend(ctx context.Context, state string, ttl time.Duration) error {
	return s.client.Expire(ctx, authTaskKey(state), ttl).Err()
}
