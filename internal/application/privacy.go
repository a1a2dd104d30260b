package application

import (
	"context"
	"errors"
	"fmt"
)

// ResetPrivacy forgets everything recorded about the anonymous visitor: queued
// votes and the visitor id. The authenticated session is left alone.
func ResetPrivacy(ctx context.Context, queue *VoteQueue, visitor *Visitor) error {
	var errs []error
	if err := queue.Clear(ctx); err != nil {
		errs = append(errs, fmt.Errorf("clear vote queue: %w", err))
	}
	if err := visitor.Reset(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reset visitor: %w", err))
	}

	return errors.Join(errs...)
}
