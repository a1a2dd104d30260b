package application

import (
	"context"
	"fmt"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
)

type likedLister interface {
	ListLiked(ctx context.Context, pageToken string) (LikedPage, error)
}

type FeedService struct {
	session   ports.CredentialKeeper
	items     ports.ItemAPI
	visitor   *Visitor
	projector likedLister
}

func NewFeedService(session ports.CredentialKeeper, items ports.ItemAPI, visitor *Visitor, projector likedLister) *FeedService {
	return &FeedService{session: session, items: items, visitor: visitor, projector: projector}
}

// Feed returns one page of the server feed. The visitor id lets the server
// skip items this visitor already saw.
func (s *FeedService) Feed(ctx context.Context, cursor string) (domain.ItemPage, error) {
	visitorID, err := s.visitor.ID(ctx)
	if err != nil {
		return domain.ItemPage{}, err
	}

	page, err := s.items.Feed(ctx, cursor, visitorID)
	if err != nil {
		return domain.ItemPage{}, fmt.Errorf("fetch feed: %w", err)
	}

	return page, nil
}

// Liked lists the server-side liked items when logged in and the locally
// projected ones otherwise. pageToken is whatever the previous page returned.
func (s *FeedService) Liked(ctx context.Context, pageToken string) (LikedPage, error) {
	pair, err := s.session.ResolveCredential(ctx)
	if err != nil {
		return LikedPage{}, fmt.Errorf("resolve credentials: %w", err)
	}

	if !pair.HasAccess() {
		page, err := s.projector.ListLiked(ctx, pageToken)
		if err != nil {
			return LikedPage{}, fmt.Errorf("project liked items: %w", err)
		}
		return page, nil
	}

	page, err := s.items.Liked(ctx, pageToken)
	if err != nil {
		return LikedPage{}, fmt.Errorf("fetch liked items: %w", err)
	}

	return LikedPage{Items: page.Items, NextPageToken: page.NextCursor, HasMore: page.HasMore}, nil
}
