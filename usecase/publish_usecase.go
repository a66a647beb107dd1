package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/domain/repository"
	"media-publisher/infrastructure/logger"
	"media-publisher/infrastructure/upload"
	"media-publisher/infrastructure/utils"
)

// IChunkUploader is the slice of the upload engine the publish flow needs.
// Run reports the index of the range that failed (or the range count on
// success) so a retry can pick up from where the transfer stopped.
type IChunkUploader interface {
	Run(ctx context.Context, session model.UploadSession, sourceURL, contentType, accessToken string, startIndex int) (int, error)
}

type IPublishUsecase interface {
	Publish(ctx context.Context, userID string, req *dto.PublishRequest) (*model.PublishJob, error)
	// RunUpload performs the chunk transfer for a job already holding an
	// upload slot, then advances it to PROCESSING. Publish launches it in the
	// background; it is callable directly to resume an interrupted transfer.
	RunUpload(ctx context.Context, jobID string, session model.UploadSession) error
	PollStatus(ctx context.Context, jobID string) (*model.PublishJob, error)
	ApplyWebhookEvent(ctx context.Context, event *dto.WebhookEvent) error
	WatchJob(ctx context.Context, jobID string) (*model.PublishJob, error)
	ReconcileActive(ctx context.Context) error
}

type publishUsecase struct {
	jobs         repository.IPublishJob
	registry     repository.IPlatformRegistry
	credentials  ICredentialUsecase
	fetcher      repository.ISourceFetcher
	uploader     IChunkUploader
	notifiers    []repository.IJobNotifier
	pollInterval time.Duration
	pollTimeout  time.Duration
	chunkSize    int64
	now          func() time.Time
}

func NewPublishUsecase(
	jobs repository.IPublishJob,
	registry repository.IPlatformRegistry,
	credentials ICredentialUsecase,
	fetcher repository.ISourceFetcher,
	uploader IChunkUploader,
	notifiers []repository.IJobNotifier,
	pollInterval, pollTimeout time.Duration,
	chunkSize int64,
) IPublishUsecase {
	return &publishUsecase{
		jobs:         jobs,
		registry:     registry,
		credentials:  credentials,
		fetcher:      fetcher,
		uploader:     uploader,
		notifiers:    notifiers,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		chunkSize:    chunkSize,
		now:          utils.GetCurrentTime,
	}
}

// Publish creates a job and initiates the publish with the platform. When the
// platform pulls the asset itself the job goes straight to PROCESSING; for
// file-upload transport the platform grants an upload slot, the job enters
// UPLOADING and the chunk transfer continues in the background.
func (u *publishUsecase) Publish(ctx context.Context, userID string, req *dto.PublishRequest) (*model.PublishJob, error) {
	adapter, err := u.registry.Get(req.Platform)
	if err != nil {
		return nil, err
	}
	token, err := u.credentials.GetValidAccessToken(ctx, req.AccountID, req.Platform)
	if err != nil {
		return nil, err
	}

	pull := adapter.CanPullFromURL()
	var session model.UploadSession
	if !pull {
		size, err := u.fetcher.Size(ctx, req.Source.URL)
		if err != nil {
			return nil, err
		}
		session, err = upload.PlanChunks(size, u.chunkSize)
		if err != nil {
			return nil, err
		}
	}

	job := &model.PublishJob{
		JobID:       bson.NewObjectID().Hex(),
		AccountID:   req.AccountID,
		UserID:      userID,
		Platform:    req.Platform,
		Status:      model.PublishStatusInitiated,
		SourceURL:   req.Source.URL,
		ContentType: req.Source.ContentType,
		CreatedAt:   u.now(),
		UpdatedAt:   u.now(),
	}
	if err := u.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	source := repository.PublishSource{ContentType: req.Source.ContentType}
	if pull {
		source.PullURL = req.Source.URL
	} else {
		source.VideoSize = session.TotalSize
		source.ChunkSize = session.ChunkSize
		source.TotalChunkCount = session.ChunkCount
	}
	init, err := adapter.InitiatePublish(ctx, token, req.Post, source)
	if err != nil {
		u.failJob(ctx, job, fmt.Sprintf("publish initiation failed: %v", err))
		return job, err
	}

	if pull {
		u.transition(ctx, job, model.PublishStatusProcessing, func(j *model.PublishJob) {
			j.PlatformPublishID = init.PlatformPublishID
		})
		return job, nil
	}

	u.transition(ctx, job, model.PublishStatusUploading, func(j *model.PublishJob) {
		j.PlatformPublishID = init.PlatformPublishID
		j.UploadURL = init.UploadURL
	})
	session.UploadTarget = init.UploadURL

	go func(jobID string, session model.UploadSession) {
		uploadCtx, cancel := context.WithTimeout(context.Background(), u.pollTimeout)
		defer cancel()
		if err := u.RunUpload(uploadCtx, jobID, session); err != nil {
			logger.GetLogger().
				WithField("job_id", jobID).
				WithField("error", err).
				Error("background upload failed")
		}
	}(job.JobID, session)

	return job, nil
}

func (u *publishUsecase) RunUpload(ctx context.Context, jobID string, session model.UploadSession) error {
	job, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if session.UploadTarget == "" {
		session.UploadTarget = job.UploadURL
	}

	token, err := u.credentials.GetValidAccessToken(ctx, job.AccountID, job.Platform)
	if err != nil {
		u.failJob(ctx, job, fmt.Sprintf("no usable token for upload: %v", err))
		return err
	}

	next, err := u.uploader.Run(ctx, session, job.SourceURL, job.ContentType, token, 0)
	if errors.Is(err, model.ErrUnauthorized) {
		// The slot rejected a token the clock considered valid. Force one
		// refresh and retry the transfer from the range that was refused;
		// chunks the target already accepted are not re-sent.
		if _, rerr := u.credentials.Refresh(ctx, job.AccountID, job.Platform); rerr == nil {
			if token, rerr = u.credentials.GetValidAccessToken(ctx, job.AccountID, job.Platform); rerr == nil {
				_, err = u.uploader.Run(ctx, session, job.SourceURL, job.ContentType, token, next)
			}
		}
	}
	if err != nil {
		u.failJob(ctx, job, fmt.Sprintf("chunk transfer failed: %v", err))
		return err
	}

	u.transition(ctx, job, model.PublishStatusProcessing, nil)
	return nil
}

// PollStatus is the pull half of the dual-channel reconciliation: read the
// platform's view, and write only when it advances the job.
func (u *publishUsecase) PollStatus(ctx context.Context, jobID string) (*model.PublishJob, error) {
	job, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() || job.PlatformPublishID == "" {
		return job, nil
	}

	adapter, err := u.registry.Get(job.Platform)
	if err != nil {
		return job, err
	}
	token, err := u.credentials.GetValidAccessToken(ctx, job.AccountID, job.Platform)
	if err != nil {
		if errors.Is(err, model.ErrAuthExpired) {
			u.failJob(ctx, job, "authorization expired while awaiting publish")
		}
		return job, err
	}
	result, err := adapter.FetchPublishStatus(ctx, token, job.PlatformPublishID)
	if err != nil {
		return job, err
	}
	if result.Status == job.Status {
		return job, nil
	}

	u.transition(ctx, job, result.Status, func(j *model.PublishJob) {
		switch result.Status {
		case model.PublishStatusPublished:
			j.Permalink = adapter.Permalink(j.AccountID, postIDOr(result.PostID, j.PlatformPublishID))
		case model.PublishStatusFailed:
			j.ErrorReason = result.FailReason
		}
	})
	return job, nil
}

// ApplyWebhookEvent is the push half. Events resolve by the platform-assigned
// publish ID; an unknown ID is logged and dropped so the ingress can always
// acknowledge. The same transition rule as polling makes replays and
// out-of-order delivery harmless.
func (u *publishUsecase) ApplyWebhookEvent(ctx context.Context, event *dto.WebhookEvent) error {
	var next model.PublishStatus
	switch event.EventName {
	case "post.publish.complete", "post.publish.inbox_delivered", "post.publish.publicly_available":
		next = model.PublishStatusPublished
	case "post.publish.failed":
		next = model.PublishStatusFailed
	default:
		logger.GetLogger().
			WithField("event", event.EventName).
			Info("ignoring unrecognized webhook event")
		return nil
	}

	job, err := u.jobs.GetByPlatformPublishID(ctx, event.PlatformPublishID)
	if errors.Is(err, model.ErrJobNotFound) {
		logger.GetLogger().
			WithField("platform_publish_id", event.PlatformPublishID).
			WithField("event", event.EventName).
			Warn("webhook for unknown publish id dropped")
		return nil
	}
	if err != nil {
		return err
	}

	u.transition(ctx, job, next, func(j *model.PublishJob) {
		switch next {
		case model.PublishStatusPublished:
			if adapter, aerr := u.registry.Get(j.Platform); aerr == nil {
				j.Permalink = adapter.Permalink(j.AccountID, postIDOr(event.PostID, j.PlatformPublishID))
			}
		case model.PublishStatusFailed:
			j.ErrorReason = event.FailReason
		}
	})
	return nil
}

// WatchJob polls until the job is terminal or the bounded window elapses, in
// which case the job is closed as TIMED_OUT, a terminal outcome distinct from
// FAILED.
func (u *publishUsecase) WatchJob(ctx context.Context, jobID string) (*model.PublishJob, error) {
	ticker := time.NewTicker(u.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(u.pollTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			job, _ := u.jobs.GetByID(ctx, jobID)
			return job, ctx.Err()
		case <-deadline.C:
			return u.timeOutJob(ctx, jobID)
		case <-ticker.C:
			job, err := u.PollStatus(ctx, jobID)
			if err != nil {
				if errors.Is(err, model.ErrJobNotFound) {
					return nil, err
				}
				logger.GetLogger().
					WithField("job_id", jobID).
					WithField("error", err).
					Warn("status poll failed; will retry")
				continue
			}
			if job.Status.Terminal() {
				return job, nil
			}
		}
	}
}

// ReconcileActive sweeps every non-terminal job once: stale ones time out,
// the rest get a status poll. Runs on a ticker from main so jobs survive
// process restarts without a dedicated watcher goroutine each.
func (u *publishUsecase) ReconcileActive(ctx context.Context) error {
	jobs, err := u.jobs.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if u.now().Sub(job.CreatedAt) >= u.pollTimeout {
			u.transition(ctx, job, model.PublishStatusTimedOut, func(j *model.PublishJob) {
				j.ErrorReason = "no terminal signal within the polling window"
			})
			continue
		}
		if job.PlatformPublishID == "" {
			continue
		}
		if _, perr := u.PollStatus(ctx, job.JobID); perr != nil {
			logger.GetLogger().
				WithField("job_id", job.JobID).
				WithField("error", perr).
				Warn("reconcile poll failed")
		}
	}
	return nil
}

func (u *publishUsecase) timeOutJob(ctx context.Context, jobID string) (*model.PublishJob, error) {
	job, err := u.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}
	u.transition(ctx, job, model.PublishStatusTimedOut, func(j *model.PublishJob) {
		j.ErrorReason = "no terminal signal within the polling window"
	})
	return job, model.ErrPublishTimedOut
}

func (u *publishUsecase) failJob(ctx context.Context, job *model.PublishJob, reason string) {
	u.transition(ctx, job, model.PublishStatusFailed, func(j *model.PublishJob) {
		j.ErrorReason = reason
	})
}

// transition is the single write path for status changes. The validation rule
// on the model gates every caller identically, and the store re-checks it
// against the stored document on write, so the polling and webhook channels
// cannot regress or double-apply a state even when they interleave.
func (u *publishUsecase) transition(ctx context.Context, job *model.PublishJob, next model.PublishStatus, mutate func(*model.PublishJob)) {
	if !job.CanTransition(next) {
		return
	}
	job.Status = next
	if mutate != nil {
		mutate(job)
	}
	job.UpdatedAt = u.now()
	if err := u.jobs.Update(ctx, job); err != nil {
		if errors.Is(err, model.ErrTransitionSuperseded) {
			// A concurrent signal won the race; surface its outcome instead.
			if stored, gerr := u.jobs.GetByID(ctx, job.JobID); gerr == nil {
				*job = *stored
			}
			return
		}
		logger.GetLogger().
			WithField("job_id", job.JobID).
			WithField("status", next).
			WithField("error", err).
			Error("job status write failed")
		return
	}
	for _, n := range u.notifiers {
		if err := n.NotifyJobStatus(ctx, job); err != nil {
			logger.GetLogger().
				WithField("job_id", job.JobID).
				WithField("error", err).
				Warn("job status notification failed")
		}
	}
}

func postIDOr(postID, fallback string) string {
	if postID != "" {
		return postID
	}
	return fallback
}
