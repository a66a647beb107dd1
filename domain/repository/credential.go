package repository

import (
	"context"

	"media-publisher/domain/model"
)

// ICredentialStore is the durable tier of the credential store: the source of
// truth on cache miss. Writes are upserts keyed on (accountID, platform).
// Get returns (nil, nil) when no credential exists for the pair.
type ICredentialStore interface {
	Upsert(ctx context.Context, credential *model.OAuthCredential) error
	Get(ctx context.Context, accountID, platform string) (*model.OAuthCredential, error)
}

// ICredentialCache is the shared cache tier. Writers overwrite the full entry
// for a key, never patch it, so readers always observe a complete value.
// A miss is (nil, nil). The cache is an optimization and never authoritative;
// it can always be rebuilt from the durable tier.
type ICredentialCache interface {
	Get(ctx context.Context, accountID, platform string) (*model.OAuthCredential, error)
	Set(ctx context.Context, credential *model.OAuthCredential) error
	Delete(ctx context.Context, accountID, platform string) error
}
