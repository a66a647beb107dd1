package persistence

import (
	"database/sql"
	"fmt"
)

// EnsureCredentialSchema creates the credentials table (PostgreSQL) if missing.
func EnsureCredentialSchema(db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS credentials (
		id BIGSERIAL PRIMARY KEY,
		account_id VARCHAR(128) NOT NULL,
		platform VARCHAR(64) NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		access_token_expires_at TIMESTAMPTZ NOT NULL,
		refresh_token_expires_at TIMESTAMPTZ NULL,
		scopes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT uq_credentials_account_platform UNIQUE (account_id, platform)
	)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create credentials table: %w", err)
	}
	return nil
}
