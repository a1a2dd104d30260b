package scoped

import (
	"context"
	"strings"

	"github.com/bnema/short5-cli/internal/ports"
)

// Store namespaces every key of an underlying store, so several profiles can
// share one backend.
type Store struct {
	inner  ports.KeyValueStore
	prefix string
}

var _ ports.KeyValueStore = (*Store)(nil)

func NewStore(inner ports.KeyValueStore, namespace ...string) *Store {
	parts := make([]string, 0, len(namespace))
	for _, part := range namespace {
		part = strings.Trim(strings.TrimSpace(part), "/")
		if part != "" {
			parts = append(parts, part)
		}
	}

	prefix := strings.Join(parts, "/")
	if prefix != "" {
		prefix += "/"
	}

	return &Store{inner: inner, prefix: prefix}
}

// ForProfile scopes keys to profiles/<name>/.
func ForProfile(inner ports.KeyValueStore, profile string) *Store {
	return NewStore(inner, "profiles", profile)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	return s.inner.Put(ctx, s.prefix+key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}
