package usecase

import (
	"context"
	"time"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/domain/repository"
	"media-publisher/infrastructure/logger"
	"media-publisher/infrastructure/utils"
)

type IAuthorizationUsecase interface {
	Begin(ctx context.Context, userID, platform, spaceID string, scopes []string) (*dto.BeginAuthorizationResponse, error)
	GetStatus(ctx context.Context, state string) (*dto.AuthorizationStatusResponse, error)
	Complete(ctx context.Context, state, code string) (*model.AuthorizationTask, error)
}

type authorizationUsecase struct {
	tasks       repository.IAuthTaskStore
	registry    repository.IPlatformRegistry
	credentials ICredentialUsecase
	taskTTL     time.Duration
	extendTTL   time.Duration
}

func NewAuthorizationUsecase(tasks repository.IAuthTaskStore, registry repository.IPlatformRegistry, credentials ICredentialUsecase, taskTTL, extendTTL time.Duration) IAuthorizationUsecase {
	return &authorizationUsecase{
		tasks:       tasks,
		registry:    registry,
		credentials: credentials,
		taskTTL:     taskTTL,
		extendTTL:   extendTTL,
	}
}

// Begin starts a consent flow: a random state token keys a pending task with
// a TTL, and the consent URL carrying that state goes back to the caller.
func (u *authorizationUsecase) Begin(ctx context.Context, userID, platform, spaceID string, scopes []string) (*dto.BeginAuthorizationResponse, error) {
	adapter, err := u.registry.Get(platform)
	if err != nil {
		return nil, err
	}
	state, err := utils.GenerateState()
	if err != nil {
		return nil, err
	}
	task := &model.AuthorizationTask{
		State:    state,
		UserID:   userID,
		Platform: platform,
		Status:   model.AuthTaskPending,
		SpaceID:  spaceID,
	}
	if err := u.tasks.Save(ctx, task, u.taskTTL); err != nil {
		return nil, err
	}
	return &dto.BeginAuthorizationResponse{
		URL:    adapter.GenerateAuthURL(scopes, state),
		TaskID: state,
	}, nil
}

func (u *authorizationUsecase) GetStatus(ctx context.Context, state string) (*dto.AuthorizationStatusResponse, error) {
	task, err := u.tasks.Get(ctx, state)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, model.ErrTaskNotFound
	}
	return &dto.AuthorizationStatusResponse{
		TaskID:    task.State,
		Status:    task.Status,
		AccountID: task.AccountID,
	}, nil
}

// Complete exchanges the callback code and persists the credential. The task
// TTL is extended once up front so a slow exchange cannot lose the task
// mid-flight. A failed exchange leaves the task pending: the same state can
// be retried until the TTL runs out.
func (u *authorizationUsecase) Complete(ctx context.Context, state, code string) (*model.AuthorizationTask, error) {
	task, err := u.tasks.Get(ctx, state)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, model.ErrTaskNotFound
	}
	if task.Status == model.AuthTaskCompleted {
		return task, nil
	}
	if err := u.tasks.Extend(ctx, state, u.extendTTL); err != nil {
		logger.GetLogger().WithField("error", err).Warn("auth task TTL extension failed")
	}

	adapter, err := u.registry.Get(task.Platform)
	if err != nil {
		return nil, err
	}
	token, err := adapter.ExchangeCode(ctx, code)
	if err != nil {
		logger.GetLogger().
			WithField("platform", task.Platform).
			WithField("task_id", state).
			WithField("error", err).
			Error("code exchange failed; task stays pending")
		return nil, err
	}

	accountID := token.OpenID
	if accountID == "" {
		accountID = task.UserID
	}
	if _, err := u.credentials.StoreToken(ctx, accountID, task.Platform, token); err != nil {
		return nil, err
	}

	task.Status = model.AuthTaskCompleted
	task.AccountID = accountID
	if err := u.tasks.Save(ctx, task, u.extendTTL); err != nil {
		return nil, err
	}
	return task, nil
}
