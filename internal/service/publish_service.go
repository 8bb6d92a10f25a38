package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ismaelcompsci/postall/internal/transfer"
)

// PublishService fans one staged media asset out to the selected platforms.
type PublishService interface {
	// Publish dispatches to each target in input order and returns one result
	// per requested platform. One platform failing never prevents the others
	// from being attempted or reported.
	Publish(ctx context.Context, userID int64, media *transfer.MediaReference, targets []transfer.PublishTarget, captions map[string]string) map[string]*transfer.PlatformUploadResult
}

type publishService struct {
	tokens  TokenService
	media   MediaResolver
	clients ClientRegistry
}

func NewPublishService(tokens TokenService, media MediaResolver, clients ClientRegistry) PublishService {
	return &publishService{
		tokens:  tokens,
		media:   media,
		clients: clients,
	}
}

func (s *publishService) Publish(ctx context.Context, userID int64, media *transfer.MediaReference, targets []transfer.PublishTarget, captions map[string]string) map[string]*transfer.PlatformUploadResult {
	results := make(map[string]*transfer.PlatformUploadResult, len(targets))

	// The signed URLs depend only on the storage keys, so they are resolved
	// once and shared across targets within this call.
	resolveMedia := s.memoizedMediaResolver(media)

	// Platforms are dispatched sequentially in input order. This keeps result
	// population deterministic and avoids concurrent refresh writes against
	// the same user's connections.
	for _, target := range targets {
		result, err := s.publishToTarget(ctx, userID, target, resolveMedia, captions[target.Name])
		if err != nil {
			uploadErr := &PlatformUploadError{Platform: target.Name, Err: err}
			slog.Error("publish failed", "platform", target.Name, "error", uploadErr.Error())
			results[target.Name] = &transfer.PlatformUploadResult{
				Success: false,
				Error:   err.Error(),
			}
			continue
		}
		results[target.Name] = result
	}

	return results
}

func (s *publishService) publishToTarget(ctx context.Context, userID int64, target transfer.PublishTarget, resolveMedia func(context.Context) (*transfer.MediaURLs, error), caption string) (*transfer.PlatformUploadResult, error) {
	if len(target.AccountIDs) == 0 {
		return nil, fmt.Errorf("no account selected for platform %s", target.Name)
	}

	client, ok := s.clients.Get(target.Name)
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", target.Name)
	}

	// Only the first account id is used; one account per platform per publish
	// call, enforced upstream.
	creds, err := s.tokens.GetAccountCredentials(ctx, target.AccountIDs[0], userID, target.Name)
	if err != nil {
		return nil, err
	}

	urls, err := resolveMedia(ctx)
	if err != nil {
		return nil, err
	}

	published, err := client.Publish(ctx, creds, urls, caption)
	if err != nil {
		return nil, err
	}

	return &transfer.PlatformUploadResult{
		Success: true,
		PostURL: published.PostURL,
	}, nil
}

func (s *publishService) memoizedMediaResolver(media *transfer.MediaReference) func(context.Context) (*transfer.MediaURLs, error) {
	var (
		urls     *transfer.MediaURLs
		err      error
		resolved bool
	)
	return func(ctx context.Context) (*transfer.MediaURLs, error) {
		if !resolved {
			urls, err = s.media.ResolveMediaURLs(ctx, media.FileKey, media.CoverKey)
			resolved = true
		}
		return urls, err
	}
}
