package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
	"github.com/google/uuid"
)

// Visitor is the anonymous visitor id, created on first use and kept in the
// store. It is independent of the authenticated session.
type Visitor struct {
	store ports.KeyValueStore
	newID func() string

	mu sync.Mutex
}

func NewVisitor(store ports.KeyValueStore, newID func() string) *Visitor {
	if newID == nil {
		newID = uuid.NewString
	}

	return &Visitor{store: store, newID: newID}
}

func (v *Visitor) ID(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id, err := v.store.Get(ctx, KeyVisitorID)
	if err == nil && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id), nil
	}
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return "", fmt.Errorf("load visitor id: %w", err)
	}

	id = v.newID()
	if err := v.store.Put(ctx, KeyVisitorID, id); err != nil {
		return "", fmt.Errorf("store visitor id: %w", err)
	}

	return id, nil
}

func (v *Visitor) Reset(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.store.Delete(ctx, KeyVisitorID); err != nil {
		return fmt.Errorf("delete visitor id: %w", err)
	}

	return nil
}
