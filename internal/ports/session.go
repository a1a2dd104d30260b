package ports

import (
	"context"

	"github.com/bnema/short5-cli/internal/domain"
)

// CredentialKeeper is the view of the session the request pipeline needs.
type CredentialKeeper interface {
	ResolveCredential(ctx context.Context) (domain.CredentialPair, error)
	UpdateCredentials(ctx context.Context, pair domain.CredentialPair) error
	ClearSession(ctx context.Context) error
}
