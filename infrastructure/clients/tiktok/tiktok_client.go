package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/domain/repository"
	"media-publisher/infrastructure/logger"

	"github.com/google/go-querystring/query"
)

const (
	apiBaseURL = "https://open.tiktokapis.com/v2"
	authURL    = "https://www.tiktok.com/v2/auth/authorize"
	platform   = "tiktok"
)

var defaultScopes = []string{"user.info.basic", "video.publish", "video.upload"}

// Config holds the app credentials registered with the platform.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// Client implements the platform capability set for TikTok's content posting
// API: form-encoded OAuth calls, JSON content calls, file-upload or
// pull-by-URL publish transport.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) repository.IPlatform {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

func (c *Client) Name() string { return platform }

func (c *Client) DefaultScopes() []string {
	if len(c.cfg.Scopes) > 0 {
		return c.cfg.Scopes
	}
	return defaultScopes
}

// CanPullFromURL is true: TikTok supports PULL_FROM_URL source info, so local
// chunk transfer is only used when the caller asks for file upload.
func (c *Client) CanPullFromURL() bool { return true }

type authURLParams struct {
	ClientKey    string `url:"client_key"`
	Scope        string `url:"scope"`
	ResponseType string `url:"response_type"`
	RedirectURI  string `url:"redirect_uri"`
	State        string `url:"state"`
}

func (c *Client) GenerateAuthURL(scopes []string, state string) string {
	if len(scopes) == 0 {
		scopes = c.DefaultScopes()
	}
	v, _ := query.Values(authURLParams{
		ClientKey:    c.cfg.ClientID,
		Scope:        strings.Join(scopes, ","),
		ResponseType: "code",
		RedirectURI:  c.cfg.RedirectURI,
		State:        state,
	})
	return fmt.Sprintf("%s/?%s", authURL, v.Encode())
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*dto.TokenResponse, error) {
	return c.oauthRequest(ctx, "exchangeCode", url.Values{
		"client_key":    {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {c.cfg.RedirectURI},
	})
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	return c.oauthRequest(ctx, "refreshToken", url.Values{
		"client_key":    {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}

func (c *Client) RevokeToken(ctx context.Context, accessToken string) error {
	body := url.Values{
		"client_key":    {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"token":         {accessToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apiBaseURL+"/oauth/revoke/", strings.NewReader(body.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.PlatformError{Platform: platform, Operation: "revokeToken", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &model.PlatformError{Platform: platform, Operation: "revokeToken",
			StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", raw)}
	}
	return nil
}

type publishInitRequest struct {
	PostInfo   postInfo   `json:"post_info"`
	SourceInfo sourceInfo `json:"source_info"`
}

type postInfo struct {
	Title          string `json:"title"`
	PrivacyLevel   string `json:"privacy_level"`
	DisableComment bool   `json:"disable_comment,omitempty"`
}

type sourceInfo struct {
	Source          string `json:"source"`
	VideoURL        string `json:"video_url,omitempty"`
	VideoSize       int64  `json:"video_size,omitempty"`
	ChunkSize       int64  `json:"chunk_size,omitempty"`
	TotalChunkCount int    `json:"total_chunk_count,omitempty"`
}

type publishInitData struct {
	PublishID string `json:"publish_id"`
	UploadURL string `json:"upload_url"`
}

func (c *Client) InitiatePublish(ctx context.Context, accessToken string, post dto.PostMetadata, source repository.PublishSource) (*repository.PublishInit, error) {
	privacy := post.PrivacyLevel
	if privacy == "" {
		privacy = "PUBLIC_TO_EVERYONE"
	}
	payload := publishInitRequest{
		PostInfo: postInfo{
			Title:          post.Title,
			PrivacyLevel:   privacy,
			DisableComment: post.DisableComment,
		},
	}
	if source.PullURL != "" {
		payload.SourceInfo = sourceInfo{Source: "PULL_FROM_URL", VideoURL: source.PullURL}
	} else {
		payload.SourceInfo = sourceInfo{
			Source:          "FILE_UPLOAD",
			VideoSize:       source.VideoSize,
			ChunkSize:       source.ChunkSize,
			TotalChunkCount: source.TotalChunkCount,
		}
	}

	data := &publishInitData{}
	if err := c.contentRequest(ctx, "initiatePublish", "/post/publish/video/init/", accessToken, payload, data); err != nil {
		return nil, err
	}
	if data.PublishID == "" {
		return nil, &model.PlatformError{Platform: platform, Operation: "initiatePublish",
			Err: fmt.Errorf("no publish_id in response")}
	}
	return &repository.PublishInit{PlatformPublishID: data.PublishID, UploadURL: data.UploadURL}, nil
}

type publishStatusData struct {
	Status                  string  `json:"status"`
	FailReason              string  `json:"fail_reason"`
	PubliclyAvailablePostID []int64 `json:"publicaly_available_post_id"`
	UploadedBytes           int64   `json:"uploaded_bytes"`
	DownloadedBytes         int64   `json:"downloaded_bytes"`
}

func (c *Client) FetchPublishStatus(ctx context.Context, accessToken, platformPublishID string) (*repository.PublishStatusResult, error) {
	data := &publishStatusData{}
	err := c.contentRequest(ctx, "fetchPublishStatus", "/post/publish/status/fetch/",
		accessToken, map[string]string{"publish_id": platformPublishID}, data)
	if err != nil {
		return nil, err
	}

	result := &repository.PublishStatusResult{FailReason: data.FailReason}
	switch data.Status {
	case "PUBLISH_COMPLETE", "SEND_TO_USER_INBOX":
		result.Status = model.PublishStatusPublished
	case "FAILED":
		result.Status = model.PublishStatusFailed
	default:
		// PROCESSING_UPLOAD, PROCESSING_DOWNLOAD and anything unrecognized
		// count as still in flight.
		result.Status = model.PublishStatusProcessing
	}
	if len(data.PubliclyAvailablePostID) > 0 {
		result.PostID = fmt.Sprintf("%d", data.PubliclyAvailablePostID[0])
	}
	return result, nil
}

func (c *Client) Permalink(openID, platformPublishID string) string {
	return fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", openID, platformPublishID)
}

// oauthRequest posts form-encoded OAuth calls and normalizes the token
// response. Non-2xx maps to ErrRefreshFailed so callers can retry after
// backoff without parsing platform specifics.
func (c *Client) oauthRequest(ctx context.Context, operation string, form url.Values) (*dto.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apiBaseURL+"/oauth/token/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRefreshFailed,
			&model.PlatformError{Platform: platform, Operation: operation, Err: err})
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.GetLogger().
			WithField("platform", platform).
			WithField("operation", operation).
			WithField("status", resp.StatusCode).
			WithField("body", string(raw)).
			Error("oauth request failed")
		return nil, fmt.Errorf("%w: %v", model.ErrRefreshFailed,
			&model.PlatformError{Platform: platform, Operation: operation,
				StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", raw)})
	}

	token := &dto.TokenResponse{}
	if err := json.Unmarshal(raw, token); err != nil {
		return nil, fmt.Errorf("%w: parse token response: %v", model.ErrRefreshFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", model.ErrRefreshFailed)
	}
	return token, nil
}

// contentRequest posts JSON to a bearer-authorized content endpoint and
// decodes the standard {data, error} envelope.
func (c *Client) contentRequest(ctx context.Context, operation, path, accessToken string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.PlatformError{Platform: platform, Operation: operation, Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %v", model.ErrUnauthorized,
			&model.PlatformError{Platform: platform, Operation: operation,
				StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", raw)})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &model.PlatformError{Platform: platform, Operation: operation,
			StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", raw)}
	}

	envelope := struct {
		Data  json.RawMessage `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &model.PlatformError{Platform: platform, Operation: operation, Err: err}
	}
	if envelope.Error.Code != "" && envelope.Error.Code != "ok" {
		return &model.PlatformError{Platform: platform, Operation: operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &model.PlatformError{Platform: platform, Operation: operation, Err: err}
		}
	}
	return nil
}
