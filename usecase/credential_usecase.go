package usecase

import (
	"context"
	"fmt"
	"time"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/domain/repository"
	"media-publisher/infrastructure/configuration"
	"media-publisher/infrastructure/logger"
	"media-publisher/infrastructure/utils"
)

type ICredentialUsecase interface {
	GetValidAccessToken(ctx context.Context, accountID, platform string) (string, error)
	Refresh(ctx context.Context, accountID, platform string) (*model.OAuthCredential, error)
	Revoke(ctx context.Context, accountID, platform string) error
	GetCredentialStatus(ctx context.Context, accountID, platform string) (*dto.CredentialStatusResponse, error)
	StoreToken(ctx context.Context, accountID, platform string, token *dto.TokenResponse) (*model.OAuthCredential, error)
}

type credentialUsecase struct {
	store    repository.ICredentialStore
	cache    repository.ICredentialCache
	registry repository.IPlatformRegistry
	now      func() time.Time
}

// NewCredentialUsecase wires the two-tier credential store. The optional
// clock override exists for expiry-boundary tests.
func NewCredentialUsecase(store repository.ICredentialStore, cache repository.ICredentialCache, registry repository.IPlatformRegistry, nowFn ...func() time.Time) ICredentialUsecase {
	u := &credentialUsecase{store: store, cache: cache, registry: registry, now: utils.GetCurrentTime}
	if len(nowFn) > 0 && nowFn[0] != nil {
		u.now = nowFn[0]
	}
	return u
}

// GetValidAccessToken returns an access token guaranteed usable for at least
// the platform's safety buffer. Cache first, durable store on miss, refresh
// when the stored expiry has passed.
func (u *credentialUsecase) GetValidAccessToken(ctx context.Context, accountID, platform string) (string, error) {
	cred, err := u.load(ctx, accountID, platform)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", fmt.Errorf("%w: no credential for account %s on %s", model.ErrAuthExpired, accountID, platform)
	}
	if !cred.AccessTokenExpired(u.now()) {
		return cred.AccessToken, nil
	}
	refreshed, err := u.refresh(ctx, cred)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

func (u *credentialUsecase) Refresh(ctx context.Context, accountID, platform string) (*model.OAuthCredential, error) {
	cred, err := u.load(ctx, accountID, platform)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: no credential for account %s on %s", model.ErrAuthExpired, accountID, platform)
	}
	return u.refresh(ctx, cred)
}

// Revoke tells the platform to drop the grant and clears the cache entry
// unconditionally. The platform call is best effort: a failure there must not
// leave a locally valid-looking token behind.
func (u *credentialUsecase) Revoke(ctx context.Context, accountID, platform string) error {
	cred, err := u.load(ctx, accountID, platform)
	if err == nil && cred != nil {
		adapter, aerr := u.registry.Get(platform)
		if aerr == nil {
			if rerr := adapter.RevokeToken(ctx, cred.AccessToken); rerr != nil {
				logger.GetLogger().
					WithField("account_id", accountID).
					WithField("platform", platform).
					WithField("error", rerr).
					Warn("platform revoke failed; clearing local state anyway")
			}
		}
	}
	return u.cache.Delete(ctx, accountID, platform)
}

func (u *credentialUsecase) GetCredentialStatus(ctx context.Context, accountID, platform string) (*dto.CredentialStatusResponse, error) {
	status := &dto.CredentialStatusResponse{AccountID: accountID, Platform: platform}
	cred, err := u.load(ctx, accountID, platform)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.RefreshTokenExpired(u.now()) {
		status.NeedsReauthorization = true
		return status, nil
	}
	status.Valid = !cred.AccessTokenExpired(u.now())
	status.AccessTokenExpiresAt = cred.AccessTokenExpiresAt.Format(time.RFC3339)
	return status, nil
}

// StoreToken converts a platform token response into a stored credential.
// Safety buffers come off the expiries here, at write time, so every later
// read is a plain clock comparison.
func (u *credentialUsecase) StoreToken(ctx context.Context, accountID, platform string, token *dto.TokenResponse) (*model.OAuthCredential, error) {
	now := u.now()
	buffers := bufferFor(platform)
	cred := &model.OAuthCredential{
		AccountID:    accountID,
		Platform:     platform,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scopes:       token.Scope,
	}
	cred.AccessTokenExpiresAt = now.Add(time.Duration(token.ExpiresIn-buffers.AccessTokenBufferSeconds) * time.Second)
	if token.RefreshExpiresIn > 0 {
		cred.RefreshTokenExpiresAt = now.Add(time.Duration(token.RefreshExpiresIn-buffers.RefreshTokenBufferSeconds) * time.Second)
	}
	if cred.RefreshToken == "" {
		// Some platforms omit the refresh token on renewal; keep the old one.
		if prior, _ := u.load(ctx, accountID, platform); prior != nil {
			cred.RefreshToken = prior.RefreshToken
			if cred.RefreshTokenExpiresAt.IsZero() {
				cred.RefreshTokenExpiresAt = prior.RefreshTokenExpiresAt
			}
		}
	}

	if err := u.store.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("%w: persist credential: %v", model.ErrRefreshFailed, err)
	}
	if err := u.cache.Set(ctx, cred); err != nil {
		// Cache is never authoritative; the durable write already succeeded.
		logger.GetLogger().
			WithField("account_id", accountID).
			WithField("platform", platform).
			WithField("error", err).
			Warn("credential cache write failed")
	}
	return cred, nil
}

// load reads cache-first with durable fallback, warming the cache on a
// durable hit. (nil, nil) means no credential exists at all.
func (u *credentialUsecase) load(ctx context.Context, accountID, platform string) (*model.OAuthCredential, error) {
	cred, err := u.cache.Get(ctx, accountID, platform)
	if err != nil {
		logger.GetLogger().
			WithField("account_id", accountID).
			WithField("platform", platform).
			WithField("error", err).
			Warn("credential cache read failed; falling back to store")
	}
	if cred != nil {
		return cred, nil
	}
	cred, err = u.store.Get(ctx, accountID, platform)
	if err != nil {
		return nil, err
	}
	if cred != nil {
		if cerr := u.cache.Set(ctx, cred); cerr != nil {
			logger.GetLogger().WithField("error", cerr).Warn("credential cache warm failed")
		}
	}
	return cred, nil
}

// refresh exchanges the refresh token for a new grant and persists it. No
// lock is held across concurrent refreshes of the same account: the platform
// tolerates back-to-back refreshes and last write wins with a complete value.
func (u *credentialUsecase) refresh(ctx context.Context, cred *model.OAuthCredential) (*model.OAuthCredential, error) {
	if cred.RefreshToken == "" || cred.RefreshTokenExpired(u.now()) {
		return nil, fmt.Errorf("%w: refresh token exhausted for account %s on %s",
			model.ErrAuthExpired, cred.AccountID, cred.Platform)
	}
	adapter, err := u.registry.Get(cred.Platform)
	if err != nil {
		return nil, err
	}
	token, err := adapter.RefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		return nil, err
	}
	return u.StoreToken(ctx, cred.AccountID, cred.Platform, token)
}

func bufferFor(platform string) configuration.OAuthClient {
	switch platform {
	case "youtube":
		return configuration.C.OAuth.Youtube
	default:
		return configuration.C.OAuth.Tiktok
	}
}
