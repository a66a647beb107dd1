package upload

import (
	"fmt"
	"io"
	"net/http"

	"context"

	"media-publisher/domain/model"
	"media-publisher/domain/repository"
)

// SourceFetcher retrieves remote assets over HTTP, one byte range at a time.
type SourceFetcher struct {
	client *http.Client
}

func NewSourceFetcher(client *http.Client) repository.ISourceFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &SourceFetcher{client: client}
}

// Size probes the asset with a HEAD request. A missing or zero Content-Length
// is rejected before any chunk plan is built.
func (f *SourceFetcher) Size(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrInvalidSource, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: source returned status %d", model.ErrInvalidSource, resp.StatusCode)
	}
	if resp.ContentLength <= 0 {
		return 0, fmt.Errorf("%w: source size unknown", model.ErrInvalidSource)
	}
	return resp.ContentLength, nil
}

func (f *SourceFetcher) FetchRange(ctx context.Context, url string, r model.ChunkRange) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", r.Start, r.End))
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("range fetch %d-%d: status %d", r.Start, r.End, resp.StatusCode)
	}
	// A 200 means the server ignored Range and is sending the whole file.
	// That only happens to line up with the request when the range starts at
	// byte zero; anywhere else the body would be the wrong bytes.
	if resp.StatusCode == http.StatusOK && r.Start > 0 {
		return nil, fmt.Errorf("range fetch %d-%d: source does not support ranged reads", r.Start, r.End)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, r.Len()))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) != r.Len() {
		return nil, fmt.Errorf("range fetch %d-%d: got %d bytes", r.Start, r.End, len(body))
	}
	return body, nil
}
