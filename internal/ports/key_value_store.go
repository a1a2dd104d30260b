package ports

import "context"

// KeyValueStore persists named string values durably.
// Get returns an error matching domain.ErrKeyNotFound when the key is absent.
// Deleting a missing key is not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
