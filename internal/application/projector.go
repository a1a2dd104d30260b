package application

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bnema/short5-cli/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLikedPageSize    = 10
	DefaultFetchConcurrency = 4
)

type LikedPage struct {
	Items         []domain.Item
	NextPageToken string
	HasMore       bool
}

type pendingLister interface {
	ListPending(ctx context.Context) ([]domain.VoteIntent, error)
}

type itemFetcher interface {
	GetItem(ctx context.Context, itemID string) (domain.Item, error)
}

// LikedProjector builds the liked listing of an anonymous visitor from the
// local vote queue.
type LikedProjector struct {
	queue       pendingLister
	items       itemFetcher
	pageSize    int
	concurrency int
	logger      *zap.Logger
}

func NewLikedProjector(queue pendingLister, items itemFetcher, pageSize, concurrency int, logger *zap.Logger) *LikedProjector {
	if pageSize <= 0 {
		pageSize = DefaultLikedPageSize
	}
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LikedProjector{
		queue:       queue,
		items:       items,
		pageSize:    pageSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ListLiked returns one page of liked items, most recently liked first.
// pageToken is the decimal offset returned by the previous page; empty means
// the first page. Items whose detail cannot be fetched are left out.
func (p *LikedProjector) ListLiked(ctx context.Context, pageToken string) (LikedPage, error) {
	offset, err := parsePageToken(pageToken)
	if err != nil {
		return LikedPage{}, err
	}

	pending, err := p.queue.ListPending(ctx)
	if err != nil {
		return LikedPage{}, fmt.Errorf("list pending votes: %w", err)
	}

	likes := make([]domain.VoteIntent, 0, len(pending))
	for _, intent := range pending {
		if intent.Direction == domain.DirectionLike {
			likes = append(likes, intent)
		}
	}
	sort.SliceStable(likes, func(i, j int) bool {
		return likes[i].RecordedAtMillis > likes[j].RecordedAtMillis
	})

	if offset >= len(likes) {
		return LikedPage{Items: []domain.Item{}}, nil
	}

	end := min(offset+p.pageSize, len(likes))
	page := likes[offset:end]

	fetched := make([]*domain.Item, len(page))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, intent := range page {
		g.Go(func() error {
			item, err := p.items.GetItem(gctx, intent.ItemID)
			if err != nil {
				p.logger.Warn("omitting liked item", zap.String("item_id", intent.ItemID), zap.Error(err))
				return nil
			}
			fetched[i] = &item
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return LikedPage{}, err
	}

	items := make([]domain.Item, 0, len(page))
	for _, item := range fetched {
		if item != nil {
			items = append(items, *item)
		}
	}

	result := LikedPage{Items: items, HasMore: end < len(likes)}
	if result.HasMore {
		result.NextPageToken = strconv.Itoa(end)
	}

	return result, nil
}

func parsePageToken(token string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidPageToken, token)
	}

	return offset, nil
}
