package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	config "github.com/ismaelcompsci/postall/configs"
	"github.com/ismaelcompsci/postall/internal/models"
	"github.com/ismaelcompsci/postall/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	googleAuthURL   = "https://accounts.google.com/o/oauth2/v2/auth"
	googleRevokeURL = "https://oauth2.googleapis.com/revoke"

	youtubeTitleLimit = 100
)

var youtubeScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.readonly",
}

type YoutubeClient struct {
	cfg  config.Config
	http *http.Client
}

func NewYoutubeClient(cfg config.Config) *YoutubeClient {
	return &YoutubeClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *YoutubeClient) Platform() string {
	return models.PlatformYoutube
}

func (c *YoutubeClient) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.cfg.GoogleClientID,
		ClientSecret: c.cfg.GoogleClientSecret,
		RedirectURL:  c.cfg.GoogleRedirectURI,
		Scopes:       youtubeScopes,
		Endpoint:     google.Endpoint,
	}
}

func (c *YoutubeClient) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", c.cfg.GoogleClientID)
	params.Add("redirect_uri", c.cfg.GoogleRedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/youtube.upload https://www.googleapis.com/auth/youtube.readonly")
	params.Add("state", state)
	params.Add("access_type", "offline")

	return fmt.Sprintf("%s?%s", googleAuthURL, params.Encode())
}

func (c *YoutubeClient) ExchangeAuthCode(ctx context.Context, code string) (*transfer.OAuthToken, error) {
	if code == "" {
		return nil, &AuthExchangeError{Platform: c.Platform(), Err: errors.New("code is empty")}
	}

	oauth2Config := c.oauthConfig()
	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" || oauth2Config.RedirectURL == "" {
		return nil, &AuthExchangeError{Platform: c.Platform(), Err: errors.New("oauth2 configuration is incomplete")}
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, &AuthExchangeError{Platform: c.Platform(), Err: err}
	}

	if token.RefreshToken == "" {
		return nil, &AuthExchangeError{Platform: c.Platform(), Err: errors.New("refresh token is empty")}
	}

	return &transfer.OAuthToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

// FetchIdentity resolves the first channel owned by the token.
func (c *YoutubeClient) FetchIdentity(ctx context.Context, accessToken string) (*transfer.Identity, error) {
	service, err := c.youtubeService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	response, err := service.Channels.List([]string{"snippet", "id"}).Mine(true).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching youtube channels: %w", err)
	}

	if len(response.Items) == 0 {
		return nil, errors.New("no youtube channel found for account")
	}

	channel := response.Items[0]
	identity := &transfer.Identity{
		ExternalID:  channel.Id,
		Username:    channel.Snippet.Title,
		DisplayName: channel.Snippet.Title,
	}
	if channel.Snippet.Thumbnails != nil && channel.Snippet.Thumbnails.Default != nil {
		identity.AvatarURL = channel.Snippet.Thumbnails.Default.Url
	}

	return identity, nil
}

// RefreshToken is not implemented for YouTube; the access token must be
// re-obtained through a full re-auth.
func (c *YoutubeClient) RefreshToken(ctx context.Context, creds *transfer.Credentials) (*transfer.OAuthToken, error) {
	return nil, &UnsupportedOperationError{Platform: c.Platform(), Op: "token refresh"}
}

// Publish downloads the staged video through its signed URL and uploads it
// with the YouTube Data API.
func (c *YoutubeClient) Publish(ctx context.Context, creds *transfer.Credentials, media *transfer.MediaURLs, caption string) (*transfer.PublishResult, error) {
	service, err := c.youtubeService(ctx, creds.AccessToken)
	if err != nil {
		return nil, &PublishError{Err: err}
	}

	tempFile, err := c.downloadToTempFile(ctx, media.FileURL)
	if err != nil {
		return nil, &PublishError{Err: err}
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		return nil, &PublishError{Err: fmt.Errorf("error opening video file: %w", err)}
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       youtubeTitle(caption),
			Description: caption,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, &PublishError{Err: fmt.Errorf("error uploading video: %w", err)}
	}

	return &transfer.PublishResult{
		PostURL: fmt.Sprintf("https://youtu.be/%s", response.Id),
	}, nil
}

func (c *YoutubeClient) youtubeService(ctx context.Context, accessToken string) (*youtube.Service, error) {
	token := &oauth2.Token{AccessToken: accessToken}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	service, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error creating youtube service: %w", err)
	}
	return service, nil
}

func (c *YoutubeClient) downloadToTempFile(ctx context.Context, signedURL string) (string, error) {
	tempFile, err := os.CreateTemp("", "video-*.mp4")
	if err != nil {
		return "", fmt.Errorf("error creating temporary file: %w", err)
	}
	defer tempFile.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return "", err
	}

	response, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading video: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	_, err = io.Copy(tempFile, response.Body)
	if err != nil {
		return "", fmt.Errorf("error saving video to temporary file: %w", err)
	}

	return tempFile.Name(), nil
}

// youtubeTitle derives a title from the caption since the publish request only
// carries per-platform captions.
func youtubeTitle(caption string) string {
	if caption == "" {
		return "Untitled"
	}
	for i, r := range caption {
		if r == '\n' || i >= youtubeTitleLimit {
			return caption[:i]
		}
	}
	return caption
}

// RevokeAccess revokes the Google token before the connection row is removed.
func (c *YoutubeClient) RevokeAccess(ctx context.Context, accessToken string) error {
	payload := []byte("token=" + accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleRevokeURL, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}
