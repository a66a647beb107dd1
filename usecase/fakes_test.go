package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/domain/repository"
)

// In-memory doubles for the stores and platform adapter. They guard state
// with a mutex and hand out copies, like a real decode path would.

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.PublishJob
	// beforeUpdate, when set, runs outside the lock before a write commits,
	// so a test can hold one writer while another lands first.
	beforeUpdate func(*model.PublishJob)
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]*model.PublishJob)}
}

func cloneJob(j *model.PublishJob) *model.PublishJob {
	c := *j
	return &c
}

func (s *memJobStore) Create(_ context.Context, job *model.PublishJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = cloneJob(job)
	return nil
}

func (s *memJobStore) GetByID(_ context.Context, jobID string) (*model.PublishJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (s *memJobStore) GetByPlatformPublishID(_ context.Context, platformPublishID string) (*model.PublishJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.PlatformPublishID == platformPublishID {
			return cloneJob(job), nil
		}
	}
	return nil, model.ErrJobNotFound
}

func (s *memJobStore) Update(_ context.Context, job *model.PublishJob) error {
	if s.beforeUpdate != nil {
		s.beforeUpdate(job)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.jobs[job.JobID]
	if !ok {
		return model.ErrJobNotFound
	}
	if !stored.CanTransition(job.Status) {
		return model.ErrTransitionSuperseded
	}
	s.jobs[job.JobID] = cloneJob(job)
	return nil
}

func (s *memJobStore) ListActive(_ context.Context) ([]*model.PublishJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.PublishJob
	for _, job := range s.jobs {
		if !job.Status.Terminal() {
			out = append(out, cloneJob(job))
		}
	}
	return out, nil
}

func (s *memJobStore) status(jobID string) model.PublishStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[jobID].Status
}

type memCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*model.OAuthCredential
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{creds: make(map[string]*model.OAuthCredential)}
}

func credKey(accountID, platform string) string { return accountID + "/" + platform }

func (s *memCredentialStore) Upsert(_ context.Context, c *model.OAuthCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.creds[credKey(c.AccountID, c.Platform)] = &cp
	return nil
}

func (s *memCredentialStore) Get(_ context.Context, accountID, platform string) (*model.OAuthCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[credKey(accountID, platform)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

type memCredentialCache struct {
	memCredentialStore
	deletes int
}

func newMemCredentialCache() *memCredentialCache {
	return &memCredentialCache{memCredentialStore: *newMemCredentialStore()}
}

func (s *memCredentialCache) Set(ctx context.Context, c *model.OAuthCredential) error {
	return s.Upsert(ctx, c)
}

func (s *memCredentialCache) Delete(_ context.Context, accountID, platform string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, credKey(accountID, platform))
	s.deletes++
	return nil
}

type taskEntry struct {
	task      model.AuthorizationTask
	expiresAt time.Time
}

type memTaskStore struct {
	mu    sync.Mutex
	now   func() time.Time
	tasks map[string]taskEntry
}

func newMemTaskStore(now func() time.Time) *memTaskStore {
	return &memTaskStore{now: now, tasks: make(map[string]taskEntry)}
}

func (s *memTaskStore) Save(_ context.Context, task *model.AuthorizationTask, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.State] = taskEntry{task: *task, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memTaskStore) Get(_ context.Context, state string) (*model.AuthorizationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tasks[state]
	if !ok || s.now().After(entry.expiresAt) {
		return nil, nil
	}
	task := entry.task
	return &task, nil
}

func (s *memTaskStore) Extend(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tasks[state]
	if !ok {
		return nil
	}
	entry.expiresAt = s.now().Add(ttl)
	s.tasks[state] = entry
	return nil
}

// fakePlatform is a scriptable adapter.
type fakePlatform struct {
	mu         sync.Mutex
	name       string
	pull       bool
	exchangeFn func(code string) (*dto.TokenResponse, error)
	refreshFn  func(refreshToken string) (*dto.TokenResponse, error)
	revokeErr  error
	revoked    []string
	initFn     func(source repository.PublishSource) (*repository.PublishInit, error)
	statusFn   func(id string) (*repository.PublishStatusResult, error)

	refreshCalls int
}

func (p *fakePlatform) Name() string { return p.name }

func (p *fakePlatform) DefaultScopes() []string { return []string{"basic"} }

func (p *fakePlatform) CanPullFromURL() bool { return p.pull }

func (p *fakePlatform) GenerateAuthURL(_ []string, state string) string {
	return "https://consent.example/authorize?state=" + state
}

func (p *fakePlatform) ExchangeCode(_ context.Context, code string) (*dto.TokenResponse, error) {
	return p.exchangeFn(code)
}

func (p *fakePlatform) RefreshToken(_ context.Context, refreshToken string) (*dto.TokenResponse, error) {
	p.mu.Lock()
	p.refreshCalls++
	p.mu.Unlock()
	return p.refreshFn(refreshToken)
}

func (p *fakePlatform) RevokeToken(_ context.Context, accessToken string) error {
	p.mu.Lock()
	p.revoked = append(p.revoked, accessToken)
	p.mu.Unlock()
	return p.revokeErr
}

func (p *fakePlatform) InitiatePublish(_ context.Context, _ string, _ dto.PostMetadata, source repository.PublishSource) (*repository.PublishInit, error) {
	return p.initFn(source)
}

func (p *fakePlatform) FetchPublishStatus(_ context.Context, _ string, id string) (*repository.PublishStatusResult, error) {
	return p.statusFn(id)
}

func (p *fakePlatform) Permalink(openID, postID string) string {
	return fmt.Sprintf("https://platform.example/@%s/video/%s", openID, postID)
}

// fakeCredentials satisfies the credential usecase contract for publish tests.
type fakeCredentials struct {
	mu           sync.Mutex
	token        string
	err          error
	refreshCalls int
}

func (c *fakeCredentials) GetValidAccessToken(context.Context, string, string) (string, error) {
	return c.token, c.err
}

func (c *fakeCredentials) Refresh(context.Context, string, string) (*model.OAuthCredential, error) {
	c.mu.Lock()
	c.refreshCalls++
	c.mu.Unlock()
	return &model.OAuthCredential{AccessToken: c.token}, nil
}

func (c *fakeCredentials) Revoke(context.Context, string, string) error { return nil }

func (c *fakeCredentials) GetCredentialStatus(context.Context, string, string) (*dto.CredentialStatusResponse, error) {
	return &dto.CredentialStatusResponse{Valid: true}, nil
}

func (c *fakeCredentials) StoreToken(context.Context, string, string, *dto.TokenResponse) (*model.OAuthCredential, error) {
	return &model.OAuthCredential{AccessToken: c.token}, nil
}

type fakeFetcher struct {
	size int64
	err  error
}

func (f *fakeFetcher) Size(context.Context, string) (int64, error) {
	return f.size, f.err
}

func (f *fakeFetcher) FetchRange(_ context.Context, _ string, r model.ChunkRange) ([]byte, error) {
	return make([]byte, r.Len()), nil
}

// fakeUploader returns scripted errors per call and can hold until released.
// A scripted failure reports failIndex as the range the transfer stopped at.
type fakeUploader struct {
	mu        sync.Mutex
	errs      []error
	failIndex int
	runs      int
	froms     []int
	block     chan struct{}
}

func (u *fakeUploader) Run(ctx context.Context, session model.UploadSession, _, _, _ string, startIndex int) (int, error) {
	if u.block != nil {
		select {
		case <-u.block:
		case <-ctx.Done():
			return startIndex, ctx.Err()
		}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	var err error
	if u.runs < len(u.errs) {
		err = u.errs[u.runs]
	}
	u.runs++
	u.froms = append(u.froms, startIndex)
	if err != nil {
		return u.failIndex, err
	}
	return len(session.ChunkRanges), nil
}

func (u *fakeUploader) startIndexes() []int {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]int, len(u.froms))
	copy(out, u.froms)
	return out
}

// recordingNotifier captures every fanned-out status in order.
type recordingNotifier struct {
	mu       sync.Mutex
	statuses []model.PublishStatus
}

func (n *recordingNotifier) NotifyJobStatus(_ context.Context, job *model.PublishJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, job.Status)
	return nil
}

func (n *recordingNotifier) seen() []model.PublishStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.PublishStatus, len(n.statuses))
	copy(out, n.statuses)
	return out
}
