package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	config "github.com/ismaelcompsci/postall/configs"
	"github.com/ismaelcompsci/postall/internal/models"
	"github.com/ismaelcompsci/postall/internal/repository"
	"github.com/ismaelcompsci/postall/internal/transfer"
	"github.com/ismaelcompsci/postall/pkg/utils"
)

// tokenRefreshLookahead is how close to expiry a token may get before it is
// refreshed on access. One window for every platform.
const tokenRefreshLookahead = 24 * time.Hour

type TokenService interface {
	// GetAccountCredentials loads one connection by all three keys, refreshing
	// its access token first when expiry falls inside the lookahead window.
	GetAccountCredentials(ctx context.Context, connectionID, userID int64, platform string) (*transfer.Credentials, error)
}

type tokenService struct {
	cfg     config.Config
	sc      repository.SocialConnectionRepository
	clients ClientRegistry
	now     func() time.Time
}

func NewTokenService(cfg config.Config, sc repository.SocialConnectionRepository, clients ClientRegistry) TokenService {
	return &tokenService{
		cfg:     cfg,
		sc:      sc,
		clients: clients,
		now:     time.Now,
	}
}

func (s *tokenService) GetAccountCredentials(ctx context.Context, connectionID, userID int64, platform string) (*transfer.Credentials, error) {
	connection, err := s.sc.GetByKeys(ctx, connectionID, userID, platform)
	if err != nil {
		return nil, err
	}
	if connection == nil {
		return nil, &NotFoundError{Resource: fmt.Sprintf("social connection for platform %s", platform)}
	}

	creds, err := s.decryptCredentials(connection)
	if err != nil {
		return nil, err
	}

	if !s.shouldRefresh(creds) {
		return creds, nil
	}

	client, ok := s.clients.Get(platform)
	if !ok {
		return nil, &TokenRefreshError{Platform: platform, Err: fmt.Errorf("no client registered")}
	}

	token, err := client.RefreshToken(ctx, creds)
	if err != nil {
		return nil, &TokenRefreshError{Platform: platform, Err: err}
	}

	if err := s.persistTokens(ctx, connection.ID, token); err != nil {
		return nil, &TokenRefreshError{Platform: platform, Err: err}
	}

	creds.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		creds.RefreshToken = token.RefreshToken
	}
	creds.TokenExpiresAt = token.ExpiresAt

	return creds, nil
}

func (s *tokenService) decryptCredentials(connection *models.SocialConnection) (*transfer.Credentials, error) {
	accessToken, err := utils.Decrypt(connection.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	var refreshToken string
	if connection.RefreshToken.Valid && connection.RefreshToken.String != "" {
		refreshToken, err = utils.Decrypt(connection.RefreshToken.String, []byte(s.cfg.SecretKey))
		if err != nil {
			return nil, err
		}
	}

	creds := &transfer.Credentials{
		ConnectionID:   connection.ID,
		UserID:         connection.UserID,
		Platform:       connection.Platform,
		PlatformUserID: connection.PlatformUserID,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
	}
	if connection.TokenExpiresAt.Valid {
		creds.TokenExpiresAt = connection.TokenExpiresAt.Time
	}

	return creds, nil
}

func (s *tokenService) shouldRefresh(creds *transfer.Credentials) bool {
	if creds.RefreshToken == "" || creds.TokenExpiresAt.IsZero() {
		return false
	}
	return creds.TokenExpiresAt.Sub(s.now()) < tokenRefreshLookahead
}

func (s *tokenService) persistTokens(ctx context.Context, connectionID int64, token *transfer.OAuthToken) error {
	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	update := &models.SocialConnection{
		AccessToken: encryptedAccessToken,
	}
	if token.RefreshToken != "" {
		encryptedRefreshToken, err := utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
		update.RefreshToken = sql.NullString{String: encryptedRefreshToken, Valid: true}
	}
	if !token.ExpiresAt.IsZero() {
		update.TokenExpiresAt = sql.NullTime{Time: token.ExpiresAt, Valid: true}
	}

	if err := s.sc.UpdateTokens(ctx, connectionID, update); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
