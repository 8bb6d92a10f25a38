package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	config "github.com/ismaelcompsci/postall/configs"
	"github.com/ismaelcompsci/postall/internal/models"
	"github.com/ismaelcompsci/postall/internal/transfer"
)

const (
	instagramGraphURL = "https://graph.facebook.com/v21.0"
	instagramAuthURL  = "https://www.facebook.com/v21.0/dialog/oauth"

	// Reels containers are processed asynchronously; status is polled on a
	// fixed interval up to a hard attempt cap (~4.5 minutes total).
	instagramPollInterval    = 9 * time.Second
	instagramMaxPollAttempts = 30

	// Long-lived tokens are valid for 60 days and can be re-exchanged as long
	// as they are at least 24 hours old but have not expired.
	instagramLongLivedTokenTTL = 60 * 24 * time.Hour

	instagramMediaProduct = "REELS"
)

type InstagramClient struct {
	cfg      config.Config
	http     *http.Client
	graphURL string
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewInstagramClient(cfg config.Config) *InstagramClient {
	return &InstagramClient{
		cfg:      cfg,
		http:     &http.Client{Timeout: 30 * time.Second},
		graphURL: instagramGraphURL,
		sleep:    sleepContext,
	}
}

func (c *InstagramClient) Platform() string {
	return models.PlatformInstagram
}

func (c *InstagramClient) AuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", c.cfg.InstagramClientID)
	params.Add("scope", "instagram_basic,instagram_content_publish,pages_show_list,business_management")
	params.Add("response_type", "code")
	params.Add("redirect_uri", c.cfg.InstagramRedirectURI)
	params.Add("state", state)

	return fmt.Sprintf("%s?%s", instagramAuthURL, params.Encode())
}

// buildGraphURL joins a graph path with query params, skipping empty values,
// and appends the access token last.
func (c *InstagramClient) buildGraphURL(path string, params url.Values, accessToken string) string {
	filtered := url.Values{}
	for key, values := range params {
		for _, v := range values {
			if v != "" {
				filtered.Add(key, v)
			}
		}
	}
	if accessToken != "" {
		filtered.Add("access_token", accessToken)
	}
	return fmt.Sprintf("%s/%s?%s", c.graphURL, path, filtered.Encode())
}

func (c *InstagramClient) ExchangeAuthCode(ctx context.Context, code string) (*transfer.OAuthToken, error) {
	if code == "" {
		return nil, &AuthExchangeError{Platform: c.Platform(), Err: errors.New("code is empty")}
	}

	shortLived, err := c.getShortLivedToken(ctx, code)
	if err != nil {
		return nil, &AuthExchangeError{Platform: c.Platform(), Err: err}
	}

	longLived, err := c.exchangeLongLivedToken(ctx, shortLived)
	if err != nil {
		return nil, &AuthExchangeError{Platform: c.Platform(), Err: err}
	}

	return longLived, nil
}

func (c *InstagramClient) getShortLivedToken(ctx context.Context, code string) (string, error) {
	params := url.Values{}
	params.Add("client_id", c.cfg.InstagramClientID)
	params.Add("client_secret", c.cfg.InstagramClientSecret)
	params.Add("redirect_uri", c.cfg.InstagramRedirectURI)
	params.Add("code", code)

	var result transfer.InstagramTokenResponse
	if err := c.getJSON(ctx, c.buildGraphURL("oauth/access_token", params, ""), &result); err != nil {
		return "", err
	}

	if result.ErrorMessage != "" {
		return "", errors.New(result.ErrorMessage)
	}
	if result.AccessToken == "" {
		return "", errors.New("no access token in response")
	}

	return result.AccessToken, nil
}

// exchangeLongLivedToken upgrades a short-lived token, and also serves as the
// refresh path since re-exchanging an unexpired long-lived token yields a new
// 60-day one.
func (c *InstagramClient) exchangeLongLivedToken(ctx context.Context, token string) (*transfer.OAuthToken, error) {
	params := url.Values{}
	params.Add("grant_type", "fb_exchange_token")
	params.Add("client_id", c.cfg.InstagramClientID)
	params.Add("client_secret", c.cfg.InstagramClientSecret)
	params.Add("fb_exchange_token", token)

	var result transfer.InstagramTokenResponse
	if err := c.getJSON(ctx, c.buildGraphURL("oauth/access_token", params, ""), &result); err != nil {
		return nil, err
	}

	if result.Error != nil {
		return nil, errors.New(result.Error.Message)
	}
	if result.AccessToken == "" {
		return nil, errors.New("access token is missing")
	}

	expiresAt := time.Now().Add(instagramLongLivedTokenTTL)
	if result.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(result.ExpiresIn) * time.Second)
	}

	// Long-lived tokens double as their own refresh credential.
	return &transfer.OAuthToken{
		AccessToken:  result.AccessToken,
		RefreshToken: result.AccessToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (c *InstagramClient) FetchIdentity(ctx context.Context, accessToken string) (*transfer.Identity, error) {
	params := url.Values{}
	params.Add("fields", "connected_instagram_account{id,name,username,profile_picture_url},name")

	var result transfer.InstagramAccountsResponse
	if err := c.getJSON(ctx, c.buildGraphURL("me/accounts", params, accessToken), &result); err != nil {
		return nil, err
	}

	if result.Error != nil {
		return nil, errors.New(result.Error.Message)
	}
	if len(result.Data) == 0 {
		return nil, errors.New("no pages with a connected instagram account")
	}

	account := result.Data[0].ConnectedInstagramAccount
	if account.ID == "" {
		return nil, errors.New("page has no connected instagram account")
	}

	return &transfer.Identity{
		ExternalID:  account.ID,
		Username:    account.Username,
		DisplayName: account.Name,
		AvatarURL:   account.ProfilePictureURL,
	}, nil
}

func (c *InstagramClient) RefreshToken(ctx context.Context, creds *transfer.Credentials) (*transfer.OAuthToken, error) {
	if creds.AccessToken == "" {
		return nil, errors.New("no access token to refresh")
	}
	return c.exchangeLongLivedToken(ctx, creds.AccessToken)
}

// Publish drives the Reels publish protocol: create a media container, poll
// its processing status, publish the container, then fetch the permalink.
func (c *InstagramClient) Publish(ctx context.Context, creds *transfer.Credentials, media *transfer.MediaURLs, caption string) (*transfer.PublishResult, error) {
	if creds.PlatformUserID == "" {
		return nil, &ContainerCreationError{Err: errors.New("no platform user id for instagram upload")}
	}

	containerID, err := c.createMediaContainer(ctx, creds.PlatformUserID, media, caption, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	if err := c.waitForContainer(ctx, containerID, creds.AccessToken); err != nil {
		return nil, err
	}

	mediaID, err := c.publishMedia(ctx, creds.PlatformUserID, containerID, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	// The post already succeeded at this point; a missing permalink is
	// tolerated and reported as an empty postURL.
	permalink, err := c.fetchPermalink(ctx, mediaID, creds.AccessToken)
	if err != nil {
		slog.Info("instagram permalink fetch failed", "media_id", mediaID, "error", err.Error())
		permalink = ""
	}

	return &transfer.PublishResult{PostURL: permalink}, nil
}

func (c *InstagramClient) createMediaContainer(ctx context.Context, igUserID string, media *transfer.MediaURLs, caption, accessToken string) (string, error) {
	params := url.Values{}
	params.Add("media_type", instagramMediaProduct)
	params.Add("video_url", media.FileURL)
	params.Add("caption", caption)
	params.Add("share_to_feed", "true")
	params.Add("cover_url", media.CoverURL)

	reqURL := c.buildGraphURL(fmt.Sprintf("%s/media", igUserID), params, accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return "", &ContainerCreationError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &ContainerCreationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &ContainerCreationError{Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)}
	}

	var result transfer.InstagramContainerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ContainerCreationError{Err: err}
	}
	if result.ID == "" {
		return "", &ContainerCreationError{Err: errors.New("missing container id in response")}
	}

	return result.ID, nil
}

// waitForContainer polls the container status on a fixed interval until it
// reaches FINISHED, fails with ERROR, or exhausts the attempt cap.
func (c *InstagramClient) waitForContainer(ctx context.Context, containerID, accessToken string) error {
	params := url.Values{}
	params.Add("fields", "status_code")
	statusURL := c.buildGraphURL(containerID, params, accessToken)

	for attempt := 0; attempt < instagramMaxPollAttempts; attempt++ {
		var result transfer.InstagramStatusResponse
		if err := c.getJSON(ctx, statusURL, &result); err != nil {
			return fmt.Errorf("status check failed: %w", err)
		}

		if result.StatusCode == "" {
			return fmt.Errorf("invalid status response from instagram")
		}

		switch result.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return &ProcessingError{Status: result.StatusCode}
		}

		if attempt < instagramMaxPollAttempts-1 {
			if err := c.sleep(ctx, instagramPollInterval); err != nil {
				return err
			}
		}
	}

	return &TimeoutError{Attempts: instagramMaxPollAttempts}
}

func (c *InstagramClient) publishMedia(ctx context.Context, igUserID, containerID, accessToken string) (string, error) {
	params := url.Values{}
	params.Add("creation_id", containerID)
	publishURL := c.buildGraphURL(fmt.Sprintf("%s/media_publish", igUserID), params, accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, publishURL, nil)
	if err != nil {
		return "", &PublishError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &PublishError{Err: err}
	}
	defer resp.Body.Close()

	var result transfer.InstagramPublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &PublishError{Err: err}
	}
	if result.ID == "" {
		msg := "missing published media id in response"
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", &PublishError{Err: errors.New(msg)}
	}

	return result.ID, nil
}

func (c *InstagramClient) fetchPermalink(ctx context.Context, mediaID, accessToken string) (string, error) {
	params := url.Values{}
	params.Add("fields", "permalink")

	var result transfer.InstagramPermalinkResponse
	if err := c.getJSON(ctx, c.buildGraphURL(mediaID, params, accessToken), &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", errors.New(result.Error.Message)
	}

	return result.Permalink, nil
}

func (c *InstagramClient) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
