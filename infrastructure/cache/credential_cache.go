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

// CredentialCache is the Redis-backed cache tier of the credential store.
// Entries are whole JSON documents overwritten on every write; a partial merge
// is never observable.
type CredentialCache struct {
	client *redis.Client
}

func NewCredentialCache(client *redis.Client) repository.ICredentialCache {
	return &CredentialCache{client: client}
}

func credentialKey(platform, accountID string) string {
	return fmt.Sprintf("credential:%s:%s", platform, accountID)
}

func (c *CredentialCache) Get(ctx context.Context, accountID, platform string) (*model.OAuthCredential, error) {
	raw, err := c.client.Get(ctx, credentialKey(platform, accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cred := &model.OAuthCredential{}
	if err := json.Unmarshal([]byte(raw), cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// credentialTTL is how long a cache entry stays useful: until the buffered
// access-token expiry. Zero means the token is already past its buffer and
// the entry is not worth caching.
func credentialTTL(credential *model.OAuthCredential, now time.Time) time.Duration {
	ttl := credential.AccessTokenExpiresAt.Sub(now)
	if ttl <= 0 {
		return 0
	}
	return ttl
}

func (c *CredentialCache) Set(ctx context.Context, credential *model.OAuthCredential) error {
	ttl := credentialTTL(credential, time.Now().UTC())
	if ttl == 0 {
		return nil
	}
	raw, err := json.Marshal(credential)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, credentialKey(credential.Platform, credential.AccountID), raw, ttl).Err()
}

func (c *CredentialCache) Delete(ctx context.Context, accountID, platform string) error {
	return c.client.Del(ctx, credentialKey(platform, accountID)).Err()
}
