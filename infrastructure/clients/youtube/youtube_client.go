package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/domain/repository"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	platform         = "youtube"
	resumableInitURL = "https://www.googleapis.com/upload/youtube/v3/videos?uploadType=resumable&part=snippet,status"
	resumableBaseURL = "https://www.googleapis.com/upload/youtube/v3/videos?uploadType=resumable&upload_id="
	revokeURL        = "https://oauth2.googleapis.com/revoke"
)

// Config represents YouTube API configuration
type Config struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURL  string `json:"redirect_url"`
}

// Client publishes through the YouTube Data API. Video bytes travel over the
// resumable upload protocol, which takes the same ranged PUTs as the chunk
// engine produces; metadata and processing state go through the generated
// API client.
type Client struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
}

// NewYouTubeClient creates a new YouTube API client
func NewYouTubeClient(config *Config, httpClient *http.Client) repository.IPlatform {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	oauth2Config := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes: []string{
			youtube.YoutubeScope,
			youtube.YoutubeUploadScope,
			youtube.YoutubeForceSslScope,
		},
		Endpoint: google.Endpoint,
	}
	return &Client{oauthConfig: oauth2Config, httpClient: httpClient}
}

func (c *Client) Name() string { return platform }

func (c *Client) DefaultScopes() []string { return c.oauthConfig.Scopes }

// CanPullFromURL is false: YouTube has no server-side pull, every byte goes
// through the resumable session.
func (c *Client) CanPullFromURL() bool { return false }

func (c *Client) GenerateAuthURL(scopes []string, state string) string {
	cfg := *c.oauthConfig
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*dto.TokenResponse, error) {
	token, err := c.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRefreshFailed,
			&model.PlatformError{Platform: platform, Operation: "exchangeCode", Err: err})
	}
	res := c.toTokenResponse(token)

	// The channel ID doubles as the account's open ID so the credential key
	// is stable across reauthorizations.
	channelID, err := c.myChannelID(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	res.OpenID = channelID
	return res, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	source := c.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRefreshFailed,
			&model.PlatformError{Platform: platform, Operation: "refreshToken", Err: err})
	}
	return c.toTokenResponse(token), nil
}

func (c *Client) RevokeToken(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL,
		bytes.NewBufferString(form.Encode()))
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
		return &model.PlatformError{Platform: platform, Operation: "revokeToken",
			StatusCode: resp.StatusCode, Err: fmt.Errorf("revoke rejected")}
	}
	return nil
}

// InitiatePublish opens a resumable upload session. The upload_id baked into
// the returned session URL is the platform publish ID; the session can be
// re-derived from it later to probe progress.
func (c *Client) InitiatePublish(ctx context.Context, accessToken string, post dto.PostMetadata, source repository.PublishSource) (*repository.PublishInit, error) {
	privacy := post.PrivacyLevel
	if privacy == "" {
		privacy = "public"
	}
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       post.Title,
			Description: post.Description,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: privacy},
	}
	body, err := json.Marshal(video)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resumableInitURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", source.VideoSize))
	if source.ContentType != "" {
		req.Header.Set("X-Upload-Content-Type", source.ContentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.PlatformError{Platform: platform, Operation: "initiatePublish", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: session init returned %d", model.ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.PlatformError{Platform: platform, Operation: "initiatePublish",
			StatusCode: resp.StatusCode, Err: fmt.Errorf("session init rejected")}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, &model.PlatformError{Platform: platform, Operation: "initiatePublish",
			Err: fmt.Errorf("no session location in response")}
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, &model.PlatformError{Platform: platform, Operation: "initiatePublish", Err: err}
	}
	uploadID := parsed.Query().Get("upload_id")
	if uploadID == "" {
		return nil, &model.PlatformError{Platform: platform, Operation: "initiatePublish",
			Err: fmt.Errorf("session location missing upload_id")}
	}
	return &repository.PublishInit{PlatformPublishID: uploadID, UploadURL: location}, nil
}

// FetchPublishStatus probes the resumable session with an empty ranged PUT.
// 308 means bytes are still outstanding; 200/201 returns the created video,
// whose processing state is then read through the videos API.
func (c *Client) FetchPublishStatus(ctx context.Context, accessToken, platformPublishID string) (*repository.PublishStatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		resumableBaseURL+url.QueryEscape(platformPublishID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Range", "bytes */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &model.PlatformError{Platform: platform, Operation: "fetchPublishStatus", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 308:
		return &repository.PublishStatusResult{Status: model.PublishStatusProcessing}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: session probe returned %d", model.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		uploaded := &youtube.Video{}
		if err := json.NewDecoder(resp.Body).Decode(uploaded); err != nil {
			return nil, &model.PlatformError{Platform: platform, Operation: "fetchPublishStatus", Err: err}
		}
		return c.videoStatus(ctx, accessToken, uploaded.Id)
	default:
		return &repository.PublishStatusResult{
			Status:     model.PublishStatusFailed,
			FailReason: fmt.Sprintf("upload session returned %d", resp.StatusCode),
		}, nil
	}
}

func (c *Client) Permalink(openID, postID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", postID)
}

// videoStatus reads the uploaded video's processing state via the generated
// API client.
func (c *Client) videoStatus(ctx context.Context, accessToken, videoID string) (*repository.PublishStatusResult, error) {
	service, err := c.newService(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	response, err := service.Videos.List([]string{"status"}).Id(videoID).Do()
	if err != nil {
		return nil, &model.PlatformError{Platform: platform, Operation: "fetchPublishStatus", Err: err}
	}
	if len(response.Items) == 0 {
		return nil, &model.PlatformError{Platform: platform, Operation: "fetchPublishStatus",
			Err: fmt.Errorf("video not found: %s", videoID)}
	}

	status := response.Items[0].Status
	result := &repository.PublishStatusResult{PostID: videoID}
	switch status.UploadStatus {
	case "processed":
		result.Status = model.PublishStatusPublished
	case "failed":
		result.Status = model.PublishStatusFailed
		result.FailReason = status.FailureReason
	case "rejected":
		result.Status = model.PublishStatusFailed
		result.FailReason = status.RejectionReason
	default:
		// "uploaded" means transcoding is still running.
		result.Status = model.PublishStatusProcessing
	}
	return result, nil
}

func (c *Client) myChannelID(ctx context.Context, accessToken string) (string, error) {
	service, err := c.newService(ctx, accessToken)
	if err != nil {
		return "", err
	}
	response, err := service.Channels.List([]string{"id"}).Mine(true).Do()
	if err != nil {
		return "", &model.PlatformError{Platform: platform, Operation: "exchangeCode", Err: err}
	}
	if len(response.Items) == 0 {
		return "", &model.PlatformError{Platform: platform, Operation: "exchangeCode",
			Err: fmt.Errorf("no channel found for authenticated user")}
	}
	return response.Items[0].Id, nil
}

func (c *Client) newService(ctx context.Context, accessToken string) (*youtube.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	service, err := youtube.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return service, nil
}

func (c *Client) toTokenResponse(token *oauth2.Token) *dto.TokenResponse {
	expiresIn := int64(0)
	if !token.Expiry.IsZero() {
		expiresIn = int64(time.Until(token.Expiry) / time.Second)
	}
	return &dto.TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    token.TokenType,
	}
}
