package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
	"go.uber.org/zap"
)

type SyncResult struct {
	Synced int
	Failed int
}

type authState interface {
	IsAuthenticated() bool
}

// Reconciler replays queued votes against the server once a session is
// authenticated.
type Reconciler struct {
	session authState
	queue   *VoteQueue
	votes   ports.VoteAPI
	logger  *zap.Logger
}

func NewReconciler(session authState, queue *VoteQueue, votes ports.VoteAPI, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{session: session, queue: queue, votes: votes, logger: logger}
}

// Sync submits every queued intent in queue order and removes the ones that
// reached the server with one write at the end. A conflict means the server
// already holds the vote and counts as synced. Intents left unsubmitted
// because the context ended or the session expired count as failed.
func (r *Reconciler) Sync(ctx context.Context) (SyncResult, error) {
	if !r.session.IsAuthenticated() {
		return SyncResult{}, nil
	}

	pending, err := r.queue.ListPending(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list pending votes: %w", err)
	}
	if len(pending) == 0 {
		return SyncResult{}, nil
	}

	var (
		result  SyncResult
		synced  = make([]domain.VoteIntent, 0, len(pending))
		stopErr error
	)

	for i, intent := range pending {
		if err := ctx.Err(); err != nil {
			stopErr = err
			result.Failed += len(pending) - i
			break
		}

		outcome, err := r.submit(ctx, intent)
		if outcome == domain.OutcomeSynced {
			synced = append(synced, intent)
			result.Synced++
			continue
		}

		result.Failed++
		if errors.Is(err, domain.ErrAuthExpired) {
			stopErr = err
			result.Failed += len(pending) - i - 1
			break
		}
	}

	if err := r.queue.Acknowledge(context.WithoutCancel(ctx), synced); err != nil {
		return result, fmt.Errorf("persist pending votes: %w", err)
	}

	r.logger.Info("vote queue synced", zap.Int("synced", result.Synced), zap.Int("failed", result.Failed))

	if stopErr != nil {
		return result, fmt.Errorf("sync stopped: %w", stopErr)
	}

	return result, nil
}

func (r *Reconciler) submit(ctx context.Context, intent domain.VoteIntent) (domain.Outcome, error) {
	err := r.votes.Vote(ctx, intent.ItemID, intent.Direction)
	switch {
	case err == nil:
		return domain.OutcomeSynced, nil
	case errors.Is(err, domain.ErrAuthExpired):
		r.logger.Warn("session expired during vote sync", zap.String("item_id", intent.ItemID), zap.Error(err))
		return domain.OutcomeRetryable, err
	case errors.Is(err, domain.ErrVoteConflict):
		r.logger.Debug("vote already recorded on server", zap.String("item_id", intent.ItemID))
		return domain.OutcomeSynced, nil
	default:
		r.logger.Warn("vote sync failed, keeping it queued", zap.String("item_id", intent.ItemID), zap.Error(err))
		return domain.OutcomeRetryable, err
	}
}
