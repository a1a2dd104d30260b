package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
	"go.uber.org/zap"
)

var errEmptyItemID = errors.New("item id is empty")

// VoteQueue is the ordered set of votes recorded while anonymous, keyed by
// item id. The store is the source of truth: every operation reads the
// persisted queue and mutations write it back before returning.
type VoteQueue struct {
	store  ports.KeyValueStore
	clock  ports.Clock
	logger *zap.Logger

	mu sync.Mutex
}

func NewVoteQueue(store ports.KeyValueStore, clock ports.Clock, logger *zap.Logger) *VoteQueue {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VoteQueue{store: store, clock: clock, logger: logger}
}

// RecordVote upserts the intent for itemID with the current time. An
// overwritten intent keeps its position in the queue.
func (q *VoteQueue) RecordVote(ctx context.Context, itemID string, direction domain.Direction) (domain.VoteIntent, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return domain.VoteIntent{}, errEmptyItemID
	}
	if !direction.Valid() {
		return domain.VoteIntent{}, fmt.Errorf("%w: %q", domain.ErrInvalidDirection, direction)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	intents, err := q.load(ctx)
	if err != nil {
		return domain.VoteIntent{}, err
	}

	intent := domain.VoteIntent{
		ItemID:           itemID,
		Direction:        direction,
		RecordedAtMillis: q.clock.Now().UnixMilli(),
	}

	replaced := false
	for i := range intents {
		if intents[i].ItemID == itemID {
			intents[i] = intent
			replaced = true
			break
		}
	}
	if !replaced {
		intents = append(intents, intent)
	}

	if err := q.save(ctx, intents); err != nil {
		return domain.VoteIntent{}, err
	}

	return intent, nil
}

// ListPending returns the queued intents in queue order. Unreadable persisted
// data is reported as an empty queue.
func (q *VoteQueue) ListPending(ctx context.Context) ([]domain.VoteIntent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.load(ctx)
}

func (q *VoteQueue) Remove(ctx context.Context, itemID string) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return errEmptyItemID
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	intents, err := q.load(ctx)
	if err != nil {
		return err
	}

	kept := intents[:0]
	for _, intent := range intents {
		if intent.ItemID != itemID {
			kept = append(kept, intent)
		}
	}
	if len(kept) == len(intents) {
		return nil
	}

	return q.save(ctx, kept)
}

func (q *VoteQueue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.store.Delete(ctx, KeyPendingVotes); err != nil {
		return fmt.Errorf("clear pending votes: %w", err)
	}

	return nil
}

// Acknowledge removes the given intents in a single write. An intent is only
// removed when its timestamp and direction still match, so a vote re-recorded
// after it was submitted stays queued.
func (q *VoteQueue) Acknowledge(ctx context.Context, synced []domain.VoteIntent) error {
	if len(synced) == 0 {
		return nil
	}

	acked := make(map[string]domain.VoteIntent, len(synced))
	for _, intent := range synced {
		acked[intent.ItemID] = intent
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	intents, err := q.load(ctx)
	if err != nil {
		return err
	}

	kept := make([]domain.VoteIntent, 0, len(intents))
	for _, intent := range intents {
		if sent, ok := acked[intent.ItemID]; ok && sent.RecordedAtMillis == intent.RecordedAtMillis && sent.Direction == intent.Direction {
			continue
		}
		kept = append(kept, intent)
	}

	return q.save(ctx, kept)
}

func (q *VoteQueue) load(ctx context.Context) ([]domain.VoteIntent, error) {
	raw, err := q.store.Get(ctx, KeyPendingVotes)
	if err != nil {
		if errors.Is(err, domain.ErrKeyNotFound) {
			return []domain.VoteIntent{}, nil
		}
		return nil, fmt.Errorf("load pending votes: %w", err)
	}

	var records []voteIntentRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		q.logger.Warn("ignoring malformed pending votes", zap.Error(err))
		return []domain.VoteIntent{}, nil
	}

	intents := make([]domain.VoteIntent, 0, len(records))
	index := make(map[string]int, len(records))
	for _, record := range records {
		intent := record.toDomain()
		if intent.ItemID == "" || !intent.Direction.Valid() {
			q.logger.Warn("skipping invalid pending vote", zap.String("item_id", record.ItemID), zap.String("direction", record.Direction))
			continue
		}
		if i, ok := index[intent.ItemID]; ok {
			intents[i] = intent
			continue
		}
		index[intent.ItemID] = len(intents)
		intents = append(intents, intent)
	}

	return intents, nil
}

func (q *VoteQueue) save(ctx context.Context, intents []domain.VoteIntent) error {
	records := make([]voteIntentRecord, 0, len(intents))
	for _, intent := range intents {
		records = append(records, toVoteIntentRecord(intent))
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode pending votes: %w", err)
	}

	if err := q.store.Put(ctx, KeyPendingVotes, string(data)); err != nil {
		return fmt.Errorf("store pending votes: %w", err)
	}

	return nil
}

type voteIntentRecord struct {
	ItemID     string `json:"item_id"`
	Direction  string `json:"direction"`
	RecordedAt int64  `json:"recorded_at_ms"`
}

func toVoteIntentRecord(intent domain.VoteIntent) voteIntentRecord {
	return voteIntentRecord{
		ItemID:     intent.ItemID,
		Direction:  string(intent.Direction),
		RecordedAt: intent.RecordedAtMillis,
	}
}

func (r voteIntentRecord) toDomain() domain.VoteIntent {
	return domain.VoteIntent{
		ItemID:           strings.TrimSpace(r.ItemID),
		Direction:        domain.Direction(r.Direction),
		RecordedAtMillis: r.RecordedAt,
	}
}
