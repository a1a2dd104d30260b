package domain

type CredentialPair struct {
	AccessToken  string
	RefreshToken string
}

func (p CredentialPair) HasAccess() bool {
	return p.AccessToken != ""
}

func (p CredentialPair) HasRefresh() bool {
	return p.RefreshToken != ""
}

// Identity is a last-known snapshot of the authenticated user, kept for display only.
type Identity struct {
	ID       string
	Username string
	Email    string
	IsAdmin  bool
	Stats    IdentityStats
}

type IdentityStats struct {
	VideosUploaded     int64
	TotalLikesReceived int64
	TotalViews         int64
}
