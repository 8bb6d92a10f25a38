package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	config "github.com/ismaelcompsci/postall/configs"
	"github.com/ismaelcompsci/postall/internal/models"
	"github.com/ismaelcompsci/postall/internal/repository"
	"github.com/ismaelcompsci/postall/pkg/utils"
)

// ConnectionService manages the social connections a user has linked.
type ConnectionService interface {
	GetAuthURL(ctx context.Context, platform, state string) string
	Connect(ctx context.Context, platform, code string, userID int64) error
	List(ctx context.Context, userID int64) ([]*models.SocialConnection, error)
	Delete(ctx context.Context, userID, connectionID int64) error
}

type connectionService struct {
	cfg     config.Config
	sc      repository.SocialConnectionRepository
	clients ClientRegistry
}

func NewConnectionService(cfg config.Config, sc repository.SocialConnectionRepository, clients ClientRegistry) ConnectionService {
	return &connectionService{
		cfg:     cfg,
		sc:      sc,
		clients: clients,
	}
}

func (s *connectionService) GetAuthURL(ctx context.Context, platform, state string) string {
	client, ok := s.clients.Get(platform)
	if !ok {
		return ""
	}
	return client.AuthURL(state)
}

// Connect exchanges the OAuth code, resolves the external identity, and
// upserts the connection row. Reconnecting the same external account updates
// the stored tokens rather than creating a second row.
func (s *connectionService) Connect(ctx context.Context, platform, code string, userID int64) error {
	if userID == 0 {
		err := errors.New("user not found")
		slog.Info(err.Error())
		return err
	}

	client, ok := s.clients.Get(platform)
	if !ok {
		return fmt.Errorf("unsupported platform: %s", platform)
	}

	token, err := client.ExchangeAuthCode(ctx, code)
	if err != nil {
		return err
	}

	identity, err := client.FetchIdentity(ctx, token.AccessToken)
	if err != nil {
		return err
	}

	encryptedAccessToken, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	connection := &models.SocialConnection{
		UserID:            userID,
		Platform:          platform,
		PlatformUserID:    identity.ExternalID,
		PlatformUsername:  identity.Username,
		ProfilePictureURL: identity.AvatarURL,
		AccessToken:       encryptedAccessToken,
	}

	if token.RefreshToken != "" {
		encryptedRefreshToken, err := utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return err
		}
		connection.RefreshToken = sql.NullString{String: encryptedRefreshToken, Valid: true}
	}
	if !token.ExpiresAt.IsZero() {
		connection.TokenExpiresAt = sql.NullTime{Time: token.ExpiresAt, Valid: true}
	}
	if !token.RefreshExpiresAt.IsZero() {
		connection.RefreshTokenExpiresAt = sql.NullTime{Time: token.RefreshExpiresAt, Valid: true}
	}

	_, err = s.sc.Upsert(ctx, nil, connection)
	if err != nil {
		return err
	}

	return nil
}

func (s *connectionService) List(ctx context.Context, userID int64) ([]*models.SocialConnection, error) {
	if userID == 0 {
		err := errors.New("user id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	connections, err := s.sc.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social connections")
	}

	return connections, nil
}

func (s *connectionService) Delete(ctx context.Context, userID, connectionID int64) error {
	if userID == 0 || connectionID == 0 {
		err := errors.New("user id or connection id is not valid")
		slog.Info(err.Error())
		return err
	}

	isOwner, err := s.sc.CheckByUserID(ctx, connectionID, userID)
	if err != nil {
		return err
	}
	if !isOwner {
		return &NotFoundError{Resource: "social connection"}
	}

	connection, err := s.sc.GetByID(ctx, connectionID)
	if err != nil || connection == nil {
		return fmt.Errorf("unable to get social connection info")
	}

	accessToken, err := utils.Decrypt(connection.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	// Best effort revoke; the row is removed either way so a revoke outage
	// cannot strand the delete.
	if client, ok := s.clients.Get(connection.Platform); ok {
		switch c := client.(type) {
		case *TiktokClient:
			if err := c.RevokeAccess(ctx, connection.PlatformUserID, accessToken); err != nil {
				slog.Info(err.Error())
			}
		case *YoutubeClient:
			if err := c.RevokeAccess(ctx, accessToken); err != nil {
				slog.Info(err.Error())
			}
		}
	}

	err = s.sc.Remove(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("error removing connection")
	}

	return nil
}
