package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the publishing core. Callers branch on these with
// errors.Is; wrapped variants carry platform, operation and HTTP status.
var (
	// ErrAuthExpired means no usable credential exists; the account must be
	// re-authorized.
	ErrAuthExpired = errors.New("authorization expired")
	// ErrRefreshFailed is a transient refresh failure, retryable by the caller
	// after backoff.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrInvalidSource is a caller error: empty, unreachable or zero-size
	// media source.
	ErrInvalidSource = errors.New("invalid media source")
	// ErrChunkUploadFailed escalates after the bounded in-engine retry budget
	// is exhausted.
	ErrChunkUploadFailed = errors.New("chunk upload failed")
	// ErrUnauthorized means the platform rejected the access token mid-upload;
	// the caller must obtain a fresh token and resume from the same range.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPublishTimedOut is the distinct terminal outcome of the bounded
	// polling window elapsing with no terminal signal.
	ErrPublishTimedOut = errors.New("publish timed out")
	// ErrJobNotFound means no publish job exists for the given key.
	ErrJobNotFound = errors.New("publish job not found")
	// ErrTransitionSuperseded means a concurrent writer advanced the job past
	// the proposed status before this write landed; the write was dropped.
	ErrTransitionSuperseded = errors.New("job transition superseded")
	// ErrTaskNotFound means the authorization task is missing or its TTL
	// elapsed.
	ErrTaskNotFound = errors.New("authorization task not found")
)

// PlatformError wraps a platform API failure with enough context to be
// actionable without retrying blindly.
type PlatformError struct {
	Platform   string
	Operation  string
	StatusCode int
	Err        error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %s failed (status %d): %v", e.Platform, e.Operation, e.StatusCode, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }
