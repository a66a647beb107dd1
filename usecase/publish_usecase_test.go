package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/domain/repository"
	"media-publisher/infrastructure/clients"
	"media-publisher/usecase"
)

type publishFixture struct {
	jobs     *memJobStore
	platform *fakePlatform
	creds    *fakeCredentials
	fetcher  *fakeFetcher
	uploader *fakeUploader
	notifier *recordingNotifier
	uc       usecase.IPublishUsecase
}

func newPublishFixture(platform *fakePlatform) *publishFixture {
	f := &publishFixture{
		jobs:     newMemJobStore(),
		platform: platform,
		creds:    &fakeCredentials{token: "token-1"},
		fetcher:  &fakeFetcher{size: 12_000_000},
		uploader: &fakeUploader{},
		notifier: &recordingNotifier{},
	}
	f.uc = usecase.NewPublishUsecase(
		f.jobs,
		clients.NewRegistry(platform),
		f.creds,
		f.fetcher,
		f.uploader,
		[]repository.IJobNotifier{f.notifier},
		5*time.Millisecond,
		50*time.Millisecond,
		5_242_880,
	)
	return f
}

func publishRequest() *dto.PublishRequest {
	return &dto.PublishRequest{
		AccountID: "acc-1",
		Platform:  "fakeplatform",
		Post:      dto.PostMetadata{Title: "clip"},
		Source:    dto.SourceInfo{URL: "https://media.example/video.mp4", ContentType: "video/mp4"},
	}
}

func TestPublishPullPlatformGoesStraightToProcessing(t *testing.T) {
	platform := &fakePlatform{
		name: "fakeplatform",
		pull: true,
		initFn: func(source repository.PublishSource) (*repository.PublishInit, error) {
			assert.Equal(t, "https://media.example/video.mp4", source.PullURL)
			assert.Zero(t, source.TotalChunkCount)
			return &repository.PublishInit{PlatformPublishID: "pub-1"}, nil
		},
	}
	f := newPublishFixture(platform)

	job, err := f.uc.Publish(context.Background(), "user-1", publishRequest())
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusProcessing, job.Status)
	assert.Equal(t, "pub-1", job.PlatformPublishID)
	assert.Equal(t, []model.PublishStatus{model.PublishStatusProcessing}, f.notifier.seen())
}

func TestPublishFileUploadPlansChunksAndUploadsInBackground(t *testing.T) {
	platform := &fakePlatform{
		name: "fakeplatform",
		initFn: func(source repository.PublishSource) (*repository.PublishInit, error) {
			assert.Equal(t, int64(12_000_000), source.VideoSize)
			assert.Equal(t, int64(5_242_880), source.ChunkSize)
			assert.Equal(t, 3, source.TotalChunkCount)
			return &repository.PublishInit{PlatformPublishID: "pub-2", UploadURL: "https://upload.example/slot"}, nil
		},
	}
	f := newPublishFixture(platform)
	f.uploader.block = make(chan struct{})

	job, err := f.uc.Publish(context.Background(), "user-1", publishRequest())
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusUploading, job.Status)
	assert.Equal(t, "https://upload.example/slot", job.UploadURL)

	close(f.uploader.block)
	require.Eventually(t, func() bool {
		return f.jobs.status(job.JobID) == model.PublishStatusProcessing
	}, time.Second, 5*time.Millisecond)
}

func TestPublishInvalidSourceReturnsBeforeJobCreation(t *testing.T) {
	platform := &fakePlatform{name: "fakeplatform"}
	f := newPublishFixture(platform)
	f.fetcher.err = model.ErrInvalidSource

	job, err := f.uc.Publish(context.Background(), "user-1", publishRequest())
	require.ErrorIs(t, err, model.ErrInvalidSource)
	assert.Nil(t, job)
}

func TestPublishInitiationFailureFailsJob(t *testing.T) {
	platform := &fakePlatform{
		name: "fakeplatform",
		pull: true,
		initFn: func(repository.PublishSource) (*repository.PublishInit, error) {
			return nil, errors.New("platform said no")
		},
	}
	f := newPublishFixture(platform)

	job, err := f.uc.Publish(context.Background(), "user-1", publishRequest())
	require.Error(t, err)
	require.NotNil(t, job)
	assert.Equal(t, model.PublishStatusFailed, job.Status)
	assert.Contains(t, job.ErrorReason, "platform said no")
}

func TestRunUploadRetriesOnceAfterUnauthorized(t *testing.T) {
	platform := &fakePlatform{name: "fakeplatform"}
	f := newPublishFixture(platform)
	f.uploader.errs = []error{model.ErrUnauthorized, nil}
	f.uploader.failIndex = 1

	job := &model.PublishJob{
		JobID:       "job-retry",
		AccountID:   "acc-1",
		Platform:    "fakeplatform",
		Status:      model.PublishStatusUploading,
		SourceURL:   "https://media.example/video.mp4",
		UploadURL:   "https://upload.example/slot",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.jobs.Create(context.Background(), job))

	session := model.UploadSession{TotalSize: 300, ChunkSize: 100, ChunkCount: 3,
		ChunkRanges: []model.ChunkRange{{Start: 0, End: 99}, {Start: 100, End: 199}, {Start: 200, End: 299}}}
	require.NoError(t, f.uc.RunUpload(context.Background(), "job-retry", session))

	assert.Equal(t, 2, f.uploader.runs)
	assert.Equal(t, 1, f.creds.refreshCalls)
	// The second pass resumes at the range the first pass stopped on.
	assert.Equal(t, []int{0, 1}, f.uploader.startIndexes())
	assert.Equal(t, model.PublishStatusProcessing, f.jobs.status("job-retry"))
}

func seedProcessingJob(t *testing.T, f *publishFixture, jobID, publishID string) {
	t.Helper()
	require.NoError(t, f.jobs.Create(context.Background(), &model.PublishJob{
		JobID:             jobID,
		PlatformPublishID: publishID,
		AccountID:         "acc-1",
		UserID:            "user-1",
		Platform:          "fakeplatform",
		Status:            model.PublishStatusProcessing,
		CreatedAt:         time.Now().UTC(),
	}))
}

func TestWebhookEventsAreIdempotentAndTerminalAbsorbs(t *testing.T) {
	platform := &fakePlatform{name: "fakeplatform"}
	f := newPublishFixture(platform)
	seedProcessingJob(t, f, "job-1", "pub-9")
	ctx := context.Background()

	require.NoError(t, f.uc.ApplyWebhookEvent(ctx, &dto.WebhookEvent{
		EventName: "post.publish.complete", PlatformPublishID: "pub-9", PostID: "777",
	}))
	job, err := f.jobs.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusPublished, job.Status)
	assert.Equal(t, "https://platform.example/@acc-1/video/777", job.Permalink)

	// Replay and siblings of the same signal change nothing.
	require.NoError(t, f.uc.ApplyWebhookEvent(ctx, &dto.WebhookEvent{
		EventName: "post.publish.publicly_available", PlatformPublishID: "pub-9",
	}))
	require.NoError(t, f.uc.ApplyWebhookEvent(ctx, &dto.WebhookEvent{
		EventName: "post.publish.inbox_delivered", PlatformPublishID: "pub-9",
	}))
	// A late failure cannot replace a terminal state.
	require.NoError(t, f.uc.ApplyWebhookEvent(ctx, &dto.WebhookEvent{
		EventName: "post.publish.failed", PlatformPublishID: "pub-9", FailReason: "too late",
	}))

	job, err = f.jobs.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusPublished, job.Status)
	assert.Empty(t, job.ErrorReason)
	assert.Equal(t, []model.PublishStatus{model.PublishStatusPublished}, f.notifier.seen())
}

func TestWebhookFailureCarriesVerbatimReason(t *testing.T) {
	platform := &fakePlatform{name: "fakeplatform"}
	f := newPublishFixture(platform)
	seedProcessingJob(t, f, "job-2", "pub-10")

	require.NoError(t, f.uc.ApplyWebhookEvent(context.Background(), &dto.WebhookEvent{
		EventName: "post.publish.failed", PlatformPublishID: "pub-10", FailReason: "video_format_check_failed",
	}))
	job, err := f.jobs.GetByID(context.Background(), "job-2")
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusFailed, job.Status)
	assert.Equal(t, "video_format_check_failed", job.ErrorReason)
}

func TestConcurrentPollAndWebhookKeepFirstTerminalStatus(t *testing.T) {
	platform := &fakePlatform{
		name: "fakeplatform",
		statusFn: func(string) (*repository.PublishStatusResult, error) {
			return &repository.PublishStatusResult{Status: model.PublishStatusPublished, PostID: "999"}, nil
		},
	}
	f := newPublishFixture(platform)
	seedProcessingJob(t, f, "job-race", "pub-race")
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	f.jobs.beforeUpdate = func(job *model.PublishJob) {
		if job.Status == model.PublishStatusFailed {
			close(entered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- f.uc.ApplyWebhookEvent(ctx, &dto.WebhookEvent{
			EventName: "post.publish.failed", PlatformPublishID: "pub-race", FailReason: "spam_risk",
		})
	}()

	// Hold the failure write after its in-memory check and land the poll
	// result first, so the late failure arrives against a terminal job.
	<-entered
	job, err := f.uc.PollStatus(ctx, "job-race")
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusPublished, job.Status)

	close(release)
	require.NoError(t, <-done)

	stored, err := f.jobs.GetByID(ctx, "job-race")
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusPublished, stored.Status)
	assert.Empty(t, stored.ErrorReason)
	assert.Equal(t, []model.PublishStatus{model.PublishStatusPublished}, f.notifier.seen())
}

func TestWebhookUnknownPublishIDIsDropped(t *testing.T) {
	platform := &fakePlatform{name: "fakeplatform"}
	f := newPublishFixture(platform)

	err := f.uc.ApplyWebhookEvent(context.Background(), &dto.WebhookEvent{
		EventName: "post.publish.complete", PlatformPublishID: "nobody-home",
	})
	assert.NoError(t, err)
	assert.Empty(t, f.notifier.seen())
}

func TestWebhookUnknownEventNameIsIgnored(t *testing.T) {
	platform := &fakePlatform{name: "fakeplatform"}
	f := newPublishFixture(platform)
	seedProcessingJob(t, f, "job-3", "pub-11")

	require.NoError(t, f.uc.ApplyWebhookEvent(context.Background(), &dto.WebhookEvent{
		EventName: "post.publish.renamed", PlatformPublishID: "pub-11",
	}))
	assert.Equal(t, model.PublishStatusProcessing, f.jobs.status("job-3"))
}

func TestPollStatusAdvancesAndSetsPermalink(t *testing.T) {
	platform := &fakePlatform{
		name: "fakeplatform",
		statusFn: func(string) (*repository.PublishStatusResult, error) {
			return &repository.PublishStatusResult{Status: model.PublishStatusPublished, PostID: "555"}, nil
		},
	}
	f := newPublishFixture(platform)
	seedProcessingJob(t, f, "job-4", "pub-12")

	job, err := f.uc.PollStatus(context.Background(), "job-4")
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusPublished, job.Status)
	assert.Equal(t, "https://platform.example/@acc-1/video/555", job.Permalink)

	// Terminal jobs answer from the store without asking the platform again.
	f.platform.statusFn = func(string) (*repository.PublishStatusResult, error) {
		t.Fatal("platform polled after terminal state")
		return nil, nil
	}
	job, err = f.uc.PollStatus(context.Background(), "job-4")
	require.NoError(t, err)
	assert.Equal(t, model.PublishStatusPublished, job.Status)
}

func TestWatchJobTimesOutDistinctFromFailed(t *testing.T) {
	platform := &fakePlatform{
		name: "fakeplatform",
		statusFn: func(string) (*repository.PublishStatusResult, error) {
			return &repository.PublishStatusResult{Status: model.PublishStatusProcessing}, nil
		},
	}
	f := newPublishFixture(platform)
	seedProcessingJob(t, f, "job-5", "pub-13")

	job, err := f.uc.WatchJob(context.Background(), "job-5")
	require.ErrorIs(t, err, model.ErrPublishTimedOut)
	require.NotNil(t, job)
	assert.Equal(t, model.PublishStatusTimedOut, job.Status)
	assert.NotEqual(t, model.PublishStatusFailed, job.Status)
}

func TestReconcileActiveTimesOutStaleJobs(t *testing.T) {
	platform := &fakePlatform{name: "fakeplatform"}
	f := newPublishFixture(platform)
	require.NoError(t, f.jobs.Create(context.Background(), &model.PublishJob{
		JobID:             "job-stale",
		PlatformPublishID: "pub-14",
		AccountID:         "acc-1",
		Platform:          "fakeplatform",
		Status:            model.PublishStatusProcessing,
		CreatedAt:         time.Now().UTC().Add(-time.Hour),
	}))

	require.NoError(t, f.uc.ReconcileActive(context.Background()))
	assert.Equal(t, model.PublishStatusTimedOut, f.jobs.status("job-stale"))
}
