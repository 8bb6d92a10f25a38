package transfer

import "time"

// PublishTarget is one platform name plus the connection ids on that platform to
// publish to, for a single request. Only AccountIDs[0] is used; one account per
// platform per publish call.
type PublishTarget struct {
	Name       string  `json:"name"`
	AccountIDs []int64 `json:"accountIds"`
}

// MediaReference holds opaque storage keys. Signed URLs are resolved from these
// at publish time and are request-scoped.
type MediaReference struct {
	FileKey  string `json:"fileKey"`
	CoverKey string `json:"coverKey,omitempty"`
}

type MediaURLs struct {
	FileURL  string `json:"fileUrl"`
	CoverURL string `json:"coverUrl,omitempty"`
}

// PlatformUploadResult is the per-platform outcome of one publish request. The
// orchestrator returns one entry per requested platform and the map is sent to
// the caller verbatim.
type PlatformUploadResult struct {
	Success bool   `json:"success"`
	PostURL string `json:"postURL,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Credentials is a decrypted, ready-to-use view of one social connection.
type Credentials struct {
	ConnectionID   int64
	UserID         int64
	Platform       string
	PlatformUserID string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
}

// OAuthToken is the result of a code exchange or a refresh.
type OAuthToken struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

// Identity describes the external account behind an access token.
type Identity struct {
	ExternalID  string
	Username    string
	DisplayName string
	AvatarURL   string
}

type PublishResult struct {
	PostURL string
}
