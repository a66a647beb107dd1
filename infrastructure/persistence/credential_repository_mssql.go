package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"media-publisher/domain/model"
)

type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) *CredentialRepositoryMSSQL {
	return &CredentialRepositoryMSSQL{db: db}
}

// EnsureCredentialSchemaMSSQL creates the credentials table for SQL Server if it does not exist.
func EnsureCredentialSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[credentials] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        account_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(64) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NOT NULL,
        access_token_expires_at DATETIME2 NOT NULL,
        refresh_token_expires_at DATETIME2 NULL,
        scopes NVARCHAR(MAX) NOT NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_credentials_account_platform ON dbo.[credentials](account_id, platform);
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create credentials (mssql): %w", err)
	}
	return nil
}

func (r *CredentialRepositoryMSSQL) Upsert(ctx context.Context, c *model.OAuthCredential) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	q := `MERGE dbo.[credentials] AS target
USING (SELECT @p1 AS account_id, @p2 AS platform) AS src
ON target.account_id = src.account_id AND target.platform = src.platform
WHEN MATCHED THEN UPDATE SET
    access_token=@p3, refresh_token=@p4, access_token_expires_at=@p5,
    refresh_token_expires_at=@p6, scopes=@p7, updated_at=@p9
WHEN NOT MATCHED THEN INSERT
    (account_id, platform, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at, scopes, created_at, updated_at)
    VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9);`
	_, err := r.db.ExecContext(ctx, q,
		c.AccountID, c.Platform, c.AccessToken, c.RefreshToken,
		c.AccessTokenExpiresAt, c.RefreshTokenExpiresAt, c.Scopes,
		c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *CredentialRepositoryMSSQL) Get(ctx context.Context, accountID, platform string) (*model.OAuthCredential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, platform, access_token, refresh_token, access_token_expires_at, refresh_token_expires_at, scopes, created_at, updated_at
		 FROM dbo.[credentials] WHERE account_id=@p1 AND platform=@p2`,
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
