package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"media-publisher/domain/model"
)

type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Upsert overwrites the single live credential for (account_id, platform).
func (r *CredentialRepository) Upsert(ctx context.Context, c *model.OAuthCredential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	q := `INSERT INTO credentials (account_id, platform, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at, scopes, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		  ON CONFLICT (account_id, platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			access_token_expires_at=EXCLUDED.access_token_expires_at,
			refresh_token_expires_at=EXCLUDED.refresh_token_expires_at,
			scopes=EXCLUDED.scopes,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q,
		c.AccountID, c.Platform, c.AccessToken, c.RefreshToken,
		c.AccessTokenExpiresAt, c.RefreshTokenExpiresAt, c.Scopes,
		c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CredentialRepository) Get(ctx context.Context, accountID, platform string) (*model.OAuthCredential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, platform, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at, scopes, created_at, updated_at
		 FROM credentials WHERE account_id=$1 AND platform=$2`,
		accountID, platform)
	cred := &model.OAuthCredential{}
	var refreshExp sql.NullTime
	if err := row.Scan(&cred.ID, &cred.AccountID, &cred.Platform, &cred.AccessToken, &cred.RefreshToken,
		&cred.AccessTokenExpiresAt, &refreshExp, &cred.Scopes, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if refreshExp.Valid {
		cred.RefreshTokenExpiresAt = refreshExp.Time
	}
	return cred, nil
}
