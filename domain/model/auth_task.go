package model

// Authorization task status values. There is no failed state: a failed code
// exchange leaves the task pending so the same state token can be retried,
// and the TTL is the only path to permanent loss.
const (
	AuthTaskPending   = 0
	AuthTaskCompleted = 1
)

// AuthorizationTask tracks one in-flight OAuth consent flow, keyed by the
// anti-CSRF state token handed to the platform.
type AuthorizationTask struct {
	State     string `json:"state"`
	UserID    string `json:"user_id"`
	Platform  string `json:"platform"`
	Status    int    `json:"status"`
	AccountID string `json:"account_id,omitempty"`
	SpaceID   string `json:"space_id,omitempty"`
}
