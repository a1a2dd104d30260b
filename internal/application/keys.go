package application

// Durable store keys. A scoped store adds the profile namespace in front.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyIdentity     = "identity"
	KeyPendingVotes = "pending_votes"
	KeyVisitorID    = "session_id"
)
