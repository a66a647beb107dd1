package dto

// PostMetadata carries the platform-agnostic description of the post being
// published. Adapter-specific field mapping happens inside each adapter.
type PostMetadata struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	PrivacyLevel   string `json:"privacy_level,omitempty"`
	DisableComment bool   `json:"disable_comment,omitempty"`
}

// SourceInfo locates the media asset to publish. The asset is remote-hosted;
// the upload engine streams it by byte range and never buffers it whole.
type SourceInfo struct {
	URL         string `json:"url" binding:"required"`
	ContentType string `json:"content_type,omitempty"`
}

// PublishRequest is the inbound body for POST /api/publish.
type PublishRequest struct {
	AccountID string       `json:"account_id" binding:"required"`
	Platform  string       `json:"platform" binding:"required"`
	Post      PostMetadata `json:"post"`
	Source    SourceInfo   `json:"source" binding:"required"`
}

// WebhookEvent is the normalized shape the external ingress layer hands to the
// state machine after signature verification and deserialization.
type WebhookEvent struct {
	EventName         string `json:"event"`
	PlatformPublishID string `json:"platform_publish_id"`
	UserOpenID        string `json:"user_openid,omitempty"`
	FailReason        string `json:"fail_reason,omitempty"`
	PostID            string `json:"post_id,omitempty"`
}
