package model

import "time"

// PublishStatus is the lifecycle state of a publish job.
type PublishStatus string

const (
	PublishStatusInitiated  PublishStatus = "INITIATED"
	PublishStatusUploading  PublishStatus = "UPLOADING"
	PublishStatusProcessing PublishStatus = "PROCESSING"
	PublishStatusPublished  PublishStatus = "PUBLISHED"
	PublishStatusFailed     PublishStatus = "FAILED"
	PublishStatusTimedOut   PublishStatus = "TIMED_OUT"
)

// statusRank orders the forward-only path INITIATED -> UPLOADING ->
// PROCESSING -> terminal. Terminal states share the top rank so that no
// terminal state can replace another.
var statusRank = map[PublishStatus]int{
	PublishStatusInitiated:  0,
	PublishStatusUploading:  1,
	PublishStatusProcessing: 2,
	PublishStatusPublished:  3,
	PublishStatusFailed:     3,
	PublishStatusTimedOut:   3,
}

// Terminal reports whether s accepts no further transitions.
func (s PublishStatus) Terminal() bool {
	return s == PublishStatusPublished || s == PublishStatusFailed || s == PublishStatusTimedOut
}

// PublishJob is the unit the publish state machine manages. PlatformPublishID
// is assigned by the platform once the publish is initiated remotely and is
// the key webhook events resolve by.
type PublishJob struct {
	JobID             string        `json:"job_id" bson:"_id"`
	PlatformPublishID string        `json:"platform_publish_id,omitempty" bson:"platformPublishId,omitempty"`
	AccountID         string        `json:"account_id" bson:"accountId"`
	UserID            string        `json:"user_id" bson:"userId"`
	Platform          string        `json:"platform" bson:"platform"`
	Status            PublishStatus `json:"status" bson:"status"`
	SourceURL         string        `json:"source_url,omitempty" bson:"sourceUrl,omitempty"`
	ContentType       string        `json:"content_type,omitempty" bson:"contentType,omitempty"`
	UploadURL         string        `json:"-" bson:"uploadUrl,omitempty"`
	ErrorReason       string        `json:"error_reason,omitempty" bson:"errorReason,omitempty"`
	Permalink         string        `json:"permalink,omitempty" bson:"permalink,omitempty"`
	CreatedAt         time.Time     `json:"created_at" bson:"createdAt"`
	UpdatedAt         time.Time     `json:"updated_at" bson:"updatedAt"`
}

// CanTransition is the single transition-validation rule shared by the polling
// and webhook paths. A write is accepted only when the job is not already
// terminal and the proposed status moves strictly forward, which makes the two
// signal channels commutative and idempotent by construction.
func (j *PublishJob) CanTransition(next PublishStatus) bool {
	if j.Status.Terminal() {
		return false
	}
	cur, ok := statusRank[j.Status]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// StatusesBelow returns every status ranked strictly below next: the set of
// stored states a write to next may still replace. The persistence layer
// filters on it so the transition check holds against the stored document,
// not just the in-memory snapshot a concurrent writer may have outrun.
func StatusesBelow(next PublishStatus) []PublishStatus {
	target, ok := statusRank[next]
	if !ok {
		return nil
	}
	var out []PublishStatus
	for s, rank := range statusRank {
		if rank < target {
			out = append(out, s)
		}
	}
	return out
}
