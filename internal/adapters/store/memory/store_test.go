package memory

import (
	"context"
	"testing"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.Get(ctx, "identity")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Put(ctx, "identity", `{"id":"u1"}`))
	got, err := store.Get(ctx, "identity")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, got)
	assert.Equal(t, []string{"identity"}, store.Keys())

	require.NoError(t, store.Delete(ctx, "identity"))
	require.NoError(t, store.Delete(ctx, "identity"))
	assert.Empty(t, store.Keys())
}
