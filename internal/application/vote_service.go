package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
)

type VoteResult struct {
	// Queued is true when the vote was recorded locally for a later sync.
	Queued bool
	Intent domain.VoteIntent
}

type VoteService struct {
	session ports.CredentialKeeper
	queue   *VoteQueue
	votes   ports.VoteAPI
}

func NewVoteService(session ports.CredentialKeeper, queue *VoteQueue, votes ports.VoteAPI) *VoteService {
	return &VoteService{session: session, queue: queue, votes: votes}
}

// Vote sends the vote straight to the server when a session exists, and
// queues it otherwise. Direct votes surface conflicts to the caller.
func (s *VoteService) Vote(ctx context.Context, itemID string, direction domain.Direction) (VoteResult, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return VoteResult{}, errEmptyItemID
	}
	if !direction.Valid() {
		return VoteResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidDirection, direction)
	}

	pair, err := s.session.ResolveCredential(ctx)
	if err != nil {
		return VoteResult{}, fmt.Errorf("resolve credentials: %w", err)
	}

	if !pair.HasAccess() {
		intent, err := s.queue.RecordVote(ctx, itemID, direction)
		if err != nil {
			return VoteResult{}, fmt.Errorf("queue vote: %w", err)
		}
		return VoteResult{Queued: true, Intent: intent}, nil
	}

	if err := s.votes.Vote(ctx, itemID, direction); err != nil {
		return VoteResult{}, fmt.Errorf("submit vote: %w", err)
	}

	return VoteResult{Intent: domain.VoteIntent{ItemID: itemID, Direction: direction}}, nil
}
