package service

import (
	"context"

	"github.com/ismaelcompsci/postall/internal/transfer"
)

// PlatformClient is the capability set every platform integration implements.
// Adding a platform means adding an implementation and registering it; nothing
// dispatches on platform names outside the registry.
type PlatformClient interface {
	Platform() string

	// AuthURL builds the provider consent URL carrying the given state token.
	AuthURL(state string) string

	// ExchangeAuthCode turns an authorization code into usable tokens,
	// including any short-lived to long-lived upgrade the platform requires.
	ExchangeAuthCode(ctx context.Context, code string) (*transfer.OAuthToken, error)

	// FetchIdentity resolves the external account behind an access token.
	FetchIdentity(ctx context.Context, accessToken string) (*transfer.Identity, error)

	// Publish drives the platform-specific publish protocol to completion.
	Publish(ctx context.Context, creds *transfer.Credentials, media *transfer.MediaURLs, caption string) (*transfer.PublishResult, error)

	// RefreshToken obtains fresh credentials. Platforms without a refresh
	// flow return an UnsupportedOperationError.
	RefreshToken(ctx context.Context, creds *transfer.Credentials) (*transfer.OAuthToken, error)
}

// ClientRegistry maps platform names to their clients.
type ClientRegistry map[string]PlatformClient

func NewClientRegistry(clients ...PlatformClient) ClientRegistry {
	registry := make(ClientRegistry, len(clients))
	for _, c := range clients {
		registry[c.Platform()] = c
	}
	return registry
}

func (r ClientRegistry) Get(platform string) (PlatformClient, bool) {
	c, ok := r[platform]
	return c, ok
}
