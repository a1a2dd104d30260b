package application

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/bnema/short5-cli/internal/ports"
	"go.uber.org/zap"
)

type ShareResult struct {
	URL string
	// Tracked reports whether the server recorded the share.
	Tracked bool
}

type ShareService struct {
	siteOrigin string
	visitor    *Visitor
	items      ports.ItemAPI
	logger     *zap.Logger
}

func NewShareService(siteOrigin string, visitor *Visitor, items ports.ItemAPI, logger *zap.Logger) *ShareService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ShareService{
		siteOrigin: strings.TrimRight(siteOrigin, "/"),
		visitor:    visitor,
		items:      items,
		logger:     logger,
	}
}

// Share builds the share link for itemID, tagged with the visitor id, and
// records the share on the server. A tracking failure does not fail the share.
func (s *ShareService) Share(ctx context.Context, itemID string) (ShareResult, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return ShareResult{}, errEmptyItemID
	}
	if s.siteOrigin == "" {
		return ShareResult{}, errors.New("site origin is not configured")
	}

	visitorID, err := s.visitor.ID(ctx)
	if err != nil {
		return ShareResult{}, err
	}

	result := ShareResult{
		URL: s.siteOrigin + "/?video=" + url.QueryEscape(itemID) + "&ref=" + url.QueryEscape(visitorID),
	}

	if err := s.items.Share(ctx, itemID, visitorID); err != nil {
		s.logger.Warn("failed to track share", zap.String("item_id", itemID), zap.Error(err))
		return result, nil
	}
	result.Tracked = true

	return result, nil
}
