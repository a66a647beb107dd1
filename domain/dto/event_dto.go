package dto

import "time"

// JobStatusEvent is the payload fanned out whenever a publish job changes
// status. Consumers on the message bus and the SSE stream get the same shape.
type JobStatusEvent struct {
	JobID             string    `json:"job_id"`
	AccountID         string    `json:"account_id"`
	Platform          string    `json:"platform"`
	Status            string    `json:"status"`
	PlatformPublishID string    `json:"platform_publish_id,omitempty"`
	PostID            string    `json:"post_id,omitempty"`
	Permalink         string    `json:"permalink,omitempty"`
	FailReason        string    `json:"fail_reason,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}
