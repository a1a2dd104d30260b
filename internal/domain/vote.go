package domain

import (
	"fmt"
	"strings"
)

type Direction string

const (
	DirectionLike    Direction = "like"
	DirectionNotLike Direction = "not_like"
)

func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case DirectionLike:
		return DirectionLike, nil
	case DirectionNotLike, "not-like", "notlike", "dislike":
		return DirectionNotLike, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, raw)
	}
}

func (d Direction) Valid() bool {
	return d == DirectionLike || d == DirectionNotLike
}

// VoteIntent is a vote recorded locally while the visitor is anonymous.
// The queue holds at most one intent per ItemID.
type VoteIntent struct {
	ItemID           string
	Direction        Direction
	RecordedAtMillis int64
}

type Outcome int

const (
	OutcomeRetryable Outcome = iota
	OutcomeSynced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSynced:
		return "synced"
	default:
		return "retryable"
	}
}
