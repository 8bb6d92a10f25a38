package transfer

type InstagramTokenResponse struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	ErrorMessage string          `json:"error_message"`
	Error        *InstagramError `json:"error"`
}

type InstagramError struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode"`
	IsTransient  bool   `json:"is_transient"`
	FbtraceID    string `json:"fbtrace_id"`
}

// InstagramAccountsResponse is the shape of me/accounts with the
// connected_instagram_account field expansion.
type InstagramAccountsResponse struct {
	Data []struct {
		Name                      string `json:"name"`
		ID                        string `json:"id"`
		ConnectedInstagramAccount struct {
			ID                string `json:"id"`
			Name              string `json:"name"`
			Username          string `json:"username"`
			ProfilePictureURL string `json:"profile_picture_url"`
		} `json:"connected_instagram_account"`
	} `json:"data"`
	Error *InstagramError `json:"error"`
}

type InstagramContainerResponse struct {
	ID    string          `json:"id"`
	Error *InstagramError `json:"error"`
}

type InstagramStatusResponse struct {
	StatusCode string          `json:"status_code"`
	Error      *InstagramError `json:"error"`
}

type InstagramPublishResponse struct {
	ID    string          `json:"id"`
	Error *InstagramError `json:"error"`
}

type InstagramPermalinkResponse struct {
	Permalink string          `json:"permalink"`
	Error     *InstagramError `json:"error"`
}
