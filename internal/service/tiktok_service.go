package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/ismaelcompsci/postall/configs"
	"github.com/ismaelcompsci/postall/internal/models"
	"github.com/ismaelcompsci/postall/internal/transfer"
)

const (
	tiktokAPIURL    = "https://open.tiktokapis.com"
	tiktokAuthURL   = "https://www.tiktok.com/v2/auth/authorize"
	tiktokRevokeURL = "https://open-api.tiktok.com/oauth/revoke/"

	tiktokScopes = "user.info.basic,user.info.profile,video.publish,video.upload"
)

type TiktokClient struct {
	cfg    config.Config
	http   *http.Client
	apiURL string
}

func NewTiktokClient(cfg config.Config) *TiktokClient {
	return &TiktokClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		apiURL: tiktokAPIURL,
	}
}

func (c *TiktokClient) Platform() string {
	return models.PlatformTiktok
}

func (c *TiktokClient) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_key", c.cfg.TiktokClientKey)
	params.Add("scope", tiktokScopes)
	params.Add("response_type", "code")
	params.Add("redirect_uri", c.cfg.TiktokRedirectURI)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", tiktokAuthURL, params.Encode())
}

func (c *TiktokClient) ExchangeAuthCode(ctx context.Context, code string) (*transfer.OAuthToken, error) {
	if code == "" {
		return nil, &AuthExchangeError{Platform: c.Platform(), Err: errors.New("code is empty")}
	}

	data := url.Values{}
	data.Add("client_key", c.cfg.TiktokClientKey)
	data.Add("client_secret", c.cfg.TiktokClientSecret)
	data.Add("code", code)
	data.Add("grant_type", "authorization_code")
	data.Add("redirect_uri", c.cfg.TiktokRedirectURI)

	token, err := c.postTokenForm(ctx, data)
	if err != nil {
		return nil, &AuthExchangeError{Platform: c.Platform(), Err: err}
	}

	return token, nil
}

func (c *TiktokClient) RefreshToken(ctx context.Context, creds *transfer.Credentials) (*transfer.OAuthToken, error) {
	if creds.RefreshToken == "" {
		return nil, errors.New("no refresh token")
	}

	data := url.Values{}
	data.Set("client_key", c.cfg.TiktokClientKey)
	data.Set("client_secret", c.cfg.TiktokClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", creds.RefreshToken)

	return c.postTokenForm(ctx, data)
}

func (c *TiktokClient) postTokenForm(ctx context.Context, data url.Values) (*transfer.OAuthToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v2/oauth/token/", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tiktok token endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var tokenResponse transfer.TiktokTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if tokenResponse.Error != "" {
		return nil, fmt.Errorf("%s: %s", tokenResponse.Error, tokenResponse.ErrorDescription)
	}
	if tokenResponse.AccessToken == "" {
		return nil, errors.New("no access token in response")
	}

	return &transfer.OAuthToken{
		AccessToken:      tokenResponse.AccessToken,
		RefreshToken:     tokenResponse.RefreshToken,
		ExpiresAt:        GetExpiresAt(tokenResponse.ExpiresIn),
		RefreshExpiresAt: GetExpiresAt(tokenResponse.RefreshExpiresIn),
	}, nil
}

func (c *TiktokClient) FetchIdentity(ctx context.Context, accessToken string) (*transfer.Identity, error) {
	reqURL := c.apiURL + "/v2/user/info/?fields=open_id,avatar_url,display_name,username"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.TiktokUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if result.Error.Code != "" && result.Error.Code != "ok" {
		return nil, fmt.Errorf("tiktok api error: %s - %s", result.Error.Code, result.Error.Message)
	}

	user := result.Data.User
	if user.OpenID == "" {
		return nil, errors.New("no open_id in user info response")
	}

	return &transfer.Identity{
		ExternalID:  user.OpenID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
	}, nil
}

// Publish starts a direct-post video upload. TikTok pulls the video from the
// signed URL and processes it server side; the init call returns a publish id
// but no permalink, so postURL stays empty.
func (c *TiktokClient) Publish(ctx context.Context, creds *transfer.Credentials, media *transfer.MediaURLs, caption string) (*transfer.PublishResult, error) {
	initRequest := transfer.TiktokVideoInitRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:                 caption,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: media.FileURL,
		},
	}

	jsonData, err := json.Marshal(initRequest)
	if err != nil {
		return nil, &PublishError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v2/post/publish/video/init/", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &PublishError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &PublishError{Err: err}
	}
	defer resp.Body.Close()

	var result transfer.TiktokUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &PublishError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &PublishError{Err: fmt.Errorf("tiktok returned status %d: %s", resp.StatusCode, result.Error.Message)}
	}
	if result.Error.Code != "" && result.Error.Code != "ok" {
		return nil, &PublishError{Err: fmt.Errorf("%s: %s", result.Error.Code, result.Error.Message)}
	}
	if result.Data.PublishID == "" {
		return nil, &PublishError{Err: errors.New("no publish id returned from tiktok")}
	}

	slog.Info("tiktok publish started", "publish_id", result.Data.PublishID)

	return &transfer.PublishResult{}, nil
}

// RevokeAccess invalidates the token with TikTok before the connection row is
// removed.
func (c *TiktokClient) RevokeAccess(ctx context.Context, openID, accessToken string) error {
	params := url.Values{}
	params.Add("open_id", openID)
	params.Add("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tiktokRevokeURL, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result transfer.TiktokRevokeData
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token: %s", result.Description)
	}
	return nil
}
