package upload_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-publisher/domain/model"
	"media-publisher/infrastructure/upload"
)

// sourceServer serves a deterministic asset of the given size, honoring
// Range requests the way a CDN would.
func sourceServer(t *testing.T, size int) *httptest.Server {
	t.Helper()
	body := make([]byte, size)
	for i := range body {
		body[i] = byte(i % 251)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", fmt.Sprint(size))
			return
		}
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Write(body)
			return
		}
		var start, end int
		_, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &start, &end)
		require.NoError(t, err)
		w.WriteHeader(http.StatusPartialContent)
		w.Write(body[start : end+1])
	}))
	t.Cleanup(srv.Close)
	return srv
}

type uploadSink struct {
	mu       sync.Mutex
	ranges   []string
	received int64
	auth     string
	// respond decides the status for each incoming PUT, in order.
	statuses []int
	calls    int
}

func (s *uploadSink) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls++
		if len(s.statuses) > 0 {
			code := s.statuses[0]
			s.statuses = s.statuses[1:]
			if code != http.StatusOK {
				w.WriteHeader(code)
				return
			}
		}
		s.ranges = append(s.ranges, r.Header.Get("Content-Range"))
		s.auth = r.Header.Get("Authorization")
		s.received += r.ContentLength
		w.WriteHeader(http.StatusOK)
	}
}

func TestEngineRunUploadsEveryRangeInOrder(t *testing.T) {
	source := sourceServer(t, 25)
	sink := &uploadSink{}
	target := httptest.NewServer(sink.handler())
	defer target.Close()

	session, err := upload.PlanChunks(25, 10)
	require.NoError(t, err)
	session.UploadTarget = target.URL

	fetcher := upload.NewSourceFetcher(nil)
	engine := upload.NewEngine(nil, fetcher)
	next, err := engine.Run(context.Background(), session, source.URL, "video/mp4", "tok-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	assert.Equal(t, []string{
		"bytes 0-9/25",
		"bytes 10-19/25",
		"bytes 20-24/25",
	}, sink.ranges)
	assert.Equal(t, int64(25), sink.received)
	assert.Equal(t, "Bearer tok-1", sink.auth)
}

func TestEngineRetriesTransientFailureWithSameBytes(t *testing.T) {
	source := sourceServer(t, 10)
	sink := &uploadSink{statuses: []int{http.StatusInternalServerError, http.StatusOK}}
	target := httptest.NewServer(sink.handler())
	defer target.Close()

	session, err := upload.PlanChunks(10, 10)
	require.NoError(t, err)
	session.UploadTarget = target.URL

	engine := upload.NewEngine(nil, upload.NewSourceFetcher(nil))
	_, err = engine.Run(context.Background(), session, source.URL, "", "tok-1", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, sink.calls)
	assert.Equal(t, []string{"bytes 0-9/10"}, sink.ranges)
}

func TestEngineAbortsImmediatelyOnUnauthorized(t *testing.T) {
	source := sourceServer(t, 10)
	sink := &uploadSink{statuses: []int{http.StatusUnauthorized}}
	target := httptest.NewServer(sink.handler())
	defer target.Close()

	session, err := upload.PlanChunks(10, 10)
	require.NoError(t, err)
	session.UploadTarget = target.URL

	engine := upload.NewEngine(nil, upload.NewSourceFetcher(nil))
	next, err := engine.Run(context.Background(), session, source.URL, "", "stale-token", 0)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, 0, next, "failed range is reported so a retry can resume there")
	assert.Equal(t, 1, sink.calls, "401 must not be retried with the same token")
}

func TestEngineGivesUpAfterAttemptBudget(t *testing.T) {
	source := sourceServer(t, 10)
	sink := &uploadSink{statuses: []int{
		http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway,
	}}
	target := httptest.NewServer(sink.handler())
	defer target.Close()

	session, err := upload.PlanChunks(10, 10)
	require.NoError(t, err)
	session.UploadTarget = target.URL

	engine := upload.NewEngine(nil, upload.NewSourceFetcher(nil))
	_, err = engine.Run(context.Background(), session, source.URL, "", "tok-1", 0)
	assert.ErrorIs(t, err, model.ErrChunkUploadFailed)
	assert.Equal(t, 3, sink.calls)
}

func TestEngineTreatsResumableAckAsChunkSuccess(t *testing.T) {
	source := sourceServer(t, 25)
	var mu sync.Mutex
	var ranges []string
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ranges = append(ranges, r.Header.Get("Content-Range"))
		n := len(ranges)
		mu.Unlock()
		if n < 3 {
			// Resumable targets acknowledge every non-final chunk with 308.
			w.WriteHeader(http.StatusPermanentRedirect)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	session, err := upload.PlanChunks(25, 10)
	require.NoError(t, err)
	session.UploadTarget = target.URL

	engine := upload.NewEngine(nil, upload.NewSourceFetcher(nil))
	next, err := engine.Run(context.Background(), session, source.URL, "video/mp4", "tok-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
	assert.Equal(t, []string{
		"bytes 0-9/25",
		"bytes 10-19/25",
		"bytes 20-24/25",
	}, ranges)
}

func TestEngineResumesFromGivenRangeIndex(t *testing.T) {
	source := sourceServer(t, 25)
	sink := &uploadSink{}
	target := httptest.NewServer(sink.handler())
	defer target.Close()

	session, err := upload.PlanChunks(25, 10)
	require.NoError(t, err)
	session.UploadTarget = target.URL

	engine := upload.NewEngine(nil, upload.NewSourceFetcher(nil))
	next, err := engine.Run(context.Background(), session, source.URL, "video/mp4", "tok-2", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, next)
	assert.Equal(t, []string{"bytes 10-19/25", "bytes 20-24/25"}, sink.ranges)
}

func TestSourceFetcherSizeRejectsUnknownLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Length on HEAD.
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fetcher := upload.NewSourceFetcher(nil)
	_, err := fetcher.Size(context.Background(), srv.URL)
	assert.ErrorIs(t, err, model.ErrInvalidSource)
}

func TestSourceFetcherSizeRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := upload.NewSourceFetcher(nil)
	_, err := fetcher.Size(context.Background(), srv.URL)
	assert.ErrorIs(t, err, model.ErrInvalidSource)
}

func TestSourceFetcherFetchRangeReturnsExactSpan(t *testing.T) {
	source := sourceServer(t, 100)

	fetcher := upload.NewSourceFetcher(nil)
	size, err := fetcher.Size(context.Background(), source.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(100), size)

	chunk, err := fetcher.FetchRange(context.Background(), source.URL, model.ChunkRange{Start: 10, End: 19})
	require.NoError(t, err)
	require.Len(t, chunk, 10)
	assert.Equal(t, byte(10), chunk[0])
	assert.Equal(t, byte(19), chunk[9])
}

func TestSourceFetcherFetchRangeRejectsIgnoredRangeHeader(t *testing.T) {
	body := []byte(strings.Repeat("x", 100))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Answers 200 with the whole asset no matter what range was asked for.
		w.Write(body)
	}))
	defer srv.Close()

	fetcher := upload.NewSourceFetcher(nil)
	_, err := fetcher.FetchRange(context.Background(), srv.URL, model.ChunkRange{Start: 10, End: 19})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranged reads")

	// A read from offset zero still yields the right bytes either way.
	chunk, err := fetcher.FetchRange(context.Background(), srv.URL, model.ChunkRange{Start: 0, End: 9})
	require.NoError(t, err)
	assert.Len(t, chunk, 10)
}

func TestSourceFetcherFetchRangeRejectsShortBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(strings.Repeat("x", 3)))
	}))
	defer srv.Close()

	fetcher := upload.NewSourceFetcher(nil)
	_, err := fetcher.FetchRange(context.Background(), srv.URL, model.ChunkRange{Start: 0, End: 9})
	assert.Error(t, err)
}
