package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"media-publisher/domain/model"
	"media-publisher/domain/repository"
	"media-publisher/infrastructure/logger"
)

const (
	maxChunkAttempts = 3
	retryBackoff     = 500 * time.Millisecond
)

// Engine drives a multi-step chunked upload: each range is downloaded from
// the source for exactly that byte span, then PUT to the platform's upload
// target with a matching Content-Range header. Ranges go strictly in
// ascending order because remote assembly depends on monotonic part numbers;
// no parallel upload is attempted.
type Engine struct {
	client  *http.Client
	fetcher repository.ISourceFetcher
}

func NewEngine(client *http.Client, fetcher repository.ISourceFetcher) *Engine {
	if client == nil {
		client = http.DefaultClient
	}
	return &Engine{client: client, fetcher: fetcher}
}

// Run streams the asset at sourceURL to the session's upload target, starting
// at range startIndex. It returns the index of the range that did not make it,
// or the range count when every range landed, so an aborted transfer can
// resume where it stopped instead of re-sending accepted chunks.
// Chunk failures retry in place with the same bytes up to the attempt budget;
// a 401/403 aborts immediately with model.ErrUnauthorized so the caller can
// re-fetch a token and resume from the returned range.
func (e *Engine) Run(ctx context.Context, session model.UploadSession, sourceURL, contentType, accessToken string, startIndex int) (int, error) {
	for i := startIndex; i < len(session.ChunkRanges); i++ {
		chunk, err := e.fetcher.FetchRange(ctx, sourceURL, session.ChunkRanges[i])
		if err != nil {
			return i, fmt.Errorf("download source range %d: %w", i, err)
		}
		if err := e.UploadChunk(ctx, session, i, chunk, contentType, accessToken); err != nil {
			return i, err
		}
	}
	return len(session.ChunkRanges), nil
}

// UploadChunk sends one range with bounded retries.
func (e *Engine) UploadChunk(ctx context.Context, session model.UploadSession, rangeIndex int, chunk []byte, contentType, accessToken string) error {
	r := session.ChunkRanges[rangeIndex]
	var lastErr error
	for attempt := 1; attempt <= maxChunkAttempts; attempt++ {
		err := e.putChunk(ctx, session, r, chunk, contentType, accessToken)
		if err == nil {
			return nil
		}
		if errors.Is(err, model.ErrUnauthorized) || ctx.Err() != nil {
			return err
		}
		lastErr = err
		logger.GetLogger().
			WithField("range", fmt.Sprintf("%d-%d", r.Start, r.End)).
			WithField("attempt", attempt).
			WithField("error", err).
			Warn("chunk upload attempt failed")
		if attempt < maxChunkAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
	}
	return fmt.Errorf("%w: range %d-%d after %d attempts: %v",
		model.ErrChunkUploadFailed, r.Start, r.End, maxChunkAttempts, lastErr)
}

func (e *Engine) putChunk(ctx context.Context, session model.UploadSession, r model.ChunkRange, chunk []byte, contentType, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.UploadTarget, bytes.NewReader(chunk))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, session.TotalSize))
	req.ContentLength = int64(len(chunk))
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusPermanentRedirect:
		// Resumable targets acknowledge every non-final chunk with 308.
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: upload target returned %d", model.ErrUnauthorized, resp.StatusCode)
	default:
		return fmt.Errorf("upload target returned %d", resp.StatusCode)
	}
}
