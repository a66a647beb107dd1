package repository

import (
	"context"

	"media-publisher/domain/model"
)

// ISourceFetcher retrieves a remote-hosted asset by byte range so the upload
// engine never holds the whole file in memory.
type ISourceFetcher interface {
	// Size probes the asset's total length; zero or unknown is an error.
	Size(ctx context.Context, url string) (int64, error)
	FetchRange(ctx context.Context, url string, r model.ChunkRange) ([]byte, error)
}
