package service

import "fmt"

// NotFoundError reports a missing social connection or other owned resource.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// TokenRefreshError wraps a failed credential refresh. It aborts only the
// platform branch it occurred on.
type TokenRefreshError struct {
	Platform string
	Err      error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("%s token refresh failed: %v", e.Platform, e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// MediaNotFoundError reports a storage key that could not be resolved to a
// signed URL.
type MediaNotFoundError struct {
	Key string
}

func (e *MediaNotFoundError) Error() string {
	return fmt.Sprintf("media %q could not be resolved", e.Key)
}

// AuthExchangeError wraps a failed OAuth code or token exchange.
type AuthExchangeError struct {
	Platform string
	Err      error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("%s auth exchange failed: %v", e.Platform, e.Err)
}

func (e *AuthExchangeError) Unwrap() error { return e.Err }

// ContainerCreationError reports a media-container create call that returned
// no container id or a non-2xx status.
type ContainerCreationError struct {
	Err error
}

func (e *ContainerCreationError) Error() string {
	return fmt.Sprintf("container creation failed: %v", e.Err)
}

func (e *ContainerCreationError) Unwrap() error { return e.Err }

// ProcessingError reports a container that reached a terminal ERROR state
// while the platform processed the media.
type ProcessingError struct {
	Status string
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("media processing failed with status %s", e.Status)
}

// PublishError reports a publish call that returned no published-media id.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed: %v", e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// TimeoutError reports a status poll that hit its attempt cap before the
// platform finished processing.
type TimeoutError struct {
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upload status check failed after %d attempts", e.Attempts)
}

// UnsupportedOperationError reports a capability the platform does not offer.
type UnsupportedOperationError struct {
	Platform string
	Op       string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Platform, e.Op)
}

// PlatformUploadError wraps any platform-specific publish failure for
// orchestrator-level reporting.
type PlatformUploadError struct {
	Platform string
	Err      error
}

func (e *PlatformUploadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Platform, e.Err)
}

func (e *PlatformUploadError) Unwrap() error { return e.Err }
