package repository

import (
	"context"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
)

// PublishSource tells the adapter where the asset comes from. When PullURL is
// set the platform fetches the asset itself; otherwise the upload engine
// pushes it in VideoSize/ChunkSize/TotalChunkCount pieces.
type PublishSource struct {
	PullURL         string
	VideoSize       int64
	ChunkSize       int64
	TotalChunkCount int
	ContentType     string
}

// PublishInit is the platform's answer to a publish initiation: the assigned
// publish ID and, for file-upload transport, the slot to PUT chunks to.
type PublishInit struct {
	PlatformPublishID string
	UploadURL         string
}

// PublishStatusResult is a normalized poll response. FailReason carries the
// platform's verbatim reason when Status is FAILED.
type PublishStatusResult struct {
	Status     model.PublishStatus
	FailReason string
	PostID     string
}

// IPlatform is the capability set every platform adapter implements. The core
// is polymorphic over it and never branches on a concrete platform identity
// except to select an adapter from the registry.
type IPlatform interface {
	Name() string
	DefaultScopes() []string
	// CanPullFromURL reports whether the platform fetches remote assets
	// itself, making the local chunked transfer unnecessary.
	CanPullFromURL() bool

	GenerateAuthURL(scopes []string, state string) string
	ExchangeCode(ctx context.Context, code string) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	RevokeToken(ctx context.Context, accessToken string) error

	InitiatePublish(ctx context.Context, accessToken string, post dto.PostMetadata, source PublishSource) (*PublishInit, error)
	FetchPublishStatus(ctx context.Context, accessToken, platformPublishID string) (*PublishStatusResult, error)
	Permalink(openID, platformPublishID string) string
}

// IPlatformRegistry routes a platform identifier to its adapter instance.
type IPlatformRegistry interface {
	Get(platform string) (IPlatform, error)
}
