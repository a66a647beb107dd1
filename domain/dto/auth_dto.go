package dto

// Res is the generic response envelope used by the HTTP layer.
type Res struct {
	ResponseCode    string      `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	Data            interface{} `json:"data,omitempty"`
}

// BeginAuthorizationResponse is returned when an OAuth consent flow starts.
// TaskID doubles as the state token the platform echoes back on callback.
type BeginAuthorizationResponse struct {
	URL    string `json:"url"`
	TaskID string `json:"task_id"`
}

// AuthorizationStatusResponse reports a pending or completed consent flow.
type AuthorizationStatusResponse struct {
	TaskID    string `json:"task_id"`
	Status    int    `json:"status"`
	AccountID string `json:"account_id,omitempty"`
}

// CredentialStatusResponse reports whether an account's grant is still
// serviceable without a new consent flow.
type CredentialStatusResponse struct {
	AccountID            string `json:"account_id"`
	Platform             string `json:"platform"`
	Valid                bool   `json:"valid"`
	NeedsReauthorization bool   `json:"needs_reauthorization"`
	AccessTokenExpiresAt string `json:"access_token_expires_at,omitempty"`
}

// TokenResponse is the common wire shape platforms return from code-exchange
// and refresh calls, expiries still relative in seconds.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	OpenID           string `json:"open_id,omitempty"`
	Scope            string `json:"scope,omitempty"`
	TokenType        string `json:"token_type,omitempty"`
}
