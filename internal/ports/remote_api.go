package ports

import (
	"context"

	"github.com/bnema/short5-cli/internal/domain"
)

type AuthResult struct {
	Identity    domain.Identity
	Credentials domain.CredentialPair
}

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (AuthResult, error)
	Register(ctx context.Context, username, email, password string) (AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (domain.Identity, error)
}

type VoteAPI interface {
	Vote(ctx context.Context, itemID string, direction domain.Direction) error
}

type ItemAPI interface {
	GetItem(ctx context.Context, itemID string) (domain.Item, error)
	Feed(ctx context.Context, cursor, visitorID string) (domain.ItemPage, error)
	Liked(ctx context.Context, cursor string) (domain.ItemPage, error)
	Share(ctx context.Context, itemID, visitorID string) error
}
