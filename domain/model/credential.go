package model

import "time"

// OAuthCredential is one account's grant on a platform. Exactly one live
// credential exists per (AccountID, Platform); writes are upserts on that pair.
// Expiry timestamps are stored already reduced by the platform's safety buffer
// so readers only compare against the clock.
type OAuthCredential struct {
	ID                    int64     `json:"id"`
	AccountID             string    `json:"account_id"`
	Platform              string    `json:"platform"`
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	Scopes                string    `json:"scopes"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// AccessTokenExpired reports whether the (buffer-adjusted) access token expiry
// has passed. A token exactly at the boundary counts as expired.
func (c *OAuthCredential) AccessTokenExpired(now time.Time) bool {
	return !now.Before(c.AccessTokenExpiresAt)
}

// RefreshTokenExpired reports whether the refresh token itself can no longer
// be used; at that point only a new authorization flow can recover the account.
func (c *OAuthCredential) RefreshTokenExpired(now time.Time) bool {
	return !c.RefreshTokenExpiresAt.IsZero() && !now.Before(c.RefreshTokenExpiresAt)
}
