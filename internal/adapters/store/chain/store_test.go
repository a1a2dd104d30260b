package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/short5-cli/internal/adapters/store/memory"
	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
	portmocks "github.com/bnema/short5-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testKey = "profiles/default/access_token"

func TestStoreGetUsesPrimaryWhenItSucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, testKey).Return("from-pass", nil).Once()

	value, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "from-pass", value)
}

func TestStoreGetFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, testKey).Return("", errors.New("pass unavailable")).Once()
	fallback.EXPECT().Get(mock.Anything, testKey).Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReportsNotFoundWhenBothBackendsMiss(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, testKey).Return("", domain.ErrKeyNotFound).Once()
	fallback.EXPECT().Get(mock.Anything, testKey).Return("", domain.ErrKeyNotFound).Once()

	_, err := store.Get(context.Background(), testKey)
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreGetReturnsCombinedErrorWhenBothBackendsFail(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, testKey).Return("", errors.New("pass failed")).Once()
	fallback.EXPECT().Get(mock.Anything, testKey).Return("", errors.New("file failed")).Once()

	_, err := store.Get(context.Background(), testKey)
	require.Error(t, err)
	assert.ErrorContains(t, err, "primary backend")
	assert.ErrorContains(t, err, "fallback backend")
	assert.ErrorContains(t, err, "pass failed")
	assert.ErrorContains(t, err, "file failed")
}

func TestStorePutFallsBackWhenPrimaryFails(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Put(mock.Anything, testKey, "token").Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Put(mock.Anything, testKey, "token").Return(nil).Once()
	primary.EXPECT().Delete(mock.Anything, testKey).Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), testKey, "token"))
}

func TestStoreReadsFallbackValueAfterPrimaryPutFails(t *testing.T) {
	t.Parallel()

	primary := memory.NewStore()
	fallback := memory.NewStore()
	flaky := &flakyPutStore{KeyValueStore: primary}
	store := NewStore(flaky, fallback)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testKey, `[{"item_id":"A"}]`))

	flaky.failPuts = true
	require.NoError(t, store.Put(ctx, testKey, `[{"item_id":"A"},{"item_id":"B"}]`))

	got, err := store.Get(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, `[{"item_id":"A"},{"item_id":"B"}]`, got)
}

func TestStorePutFailsWhenStalePrimaryValueCannotBeRemoved(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Put(mock.Anything, testKey, "new").Return(errors.New("gpg agent timeout")).Once()
	fallback.EXPECT().Put(mock.Anything, testKey, "new").Return(nil).Once()
	primary.EXPECT().Delete(mock.Anything, testKey).Return(errors.New("gpg agent timeout")).Once()
	primary.EXPECT().Get(mock.Anything, testKey).Return("old", nil).Once()

	err := store.Put(context.Background(), testKey, "new")
	require.Error(t, err)
	assert.ErrorContains(t, err, "stale primary value")
}

func TestStorePutToleratesUnavailablePrimary(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	passMissing := errors.New("pass: executable file not found")
	primary.EXPECT().Put(mock.Anything, testKey, "token").Return(passMissing).Once()
	fallback.EXPECT().Put(mock.Anything, testKey, "token").Return(nil).Once()
	primary.EXPECT().Delete(mock.Anything, testKey).Return(passMissing).Once()
	primary.EXPECT().Get(mock.Anything, testKey).Return("", passMissing).Once()

	require.NoError(t, store.Put(context.Background(), testKey, "token"))
}

type flakyPutStore struct {
	ports.KeyValueStore
	failPuts bool
}

func (s *flakyPutStore) Put(ctx context.Context, key string, value string) error {
	if s.failPuts {
		return errors.New("gpg agent timeout")
	}
	return s.KeyValueStore.Put(ctx, key, value)
}

func TestStorePutDoesNotCallFallbackWhenPrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Put(mock.Anything, testKey, "token").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), testKey, "token"))
}

func TestStoreDeleteRemovesFromBothBackends(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Delete(mock.Anything, testKey).Return(nil).Once()
	fallback.EXPECT().Delete(mock.Anything, testKey).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), testKey))
}

func TestStoreDeleteToleratesPrimaryFailureWhenFallbackSucceeds(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Delete(mock.Anything, testKey).Return(errors.New("pass failed")).Once()
	fallback.EXPECT().Delete(mock.Anything, testKey).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), testKey))
}

func TestStoreGetDoesNotFallbackOnCanceledContextError(t *testing.T) {
	t.Parallel()

	primary := portmocks.NewMockKeyValueStore(t)
	fallback := portmocks.NewMockKeyValueStore(t)
	store := NewStore(primary, fallback)

	primary.EXPECT().Get(mock.Anything, testKey).Return("", context.Canceled).Once()

	_, err := store.Get(context.Background(), testKey)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewStoreCheckedRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStoreChecked(nil, portmocks.NewMockKeyValueStore(t))
	require.ErrorIs(t, err, errNilPrimaryStore)

	_, err = NewStoreChecked(portmocks.NewMockKeyValueStore(t), nil)
	require.ErrorIs(t, err, errNilFallbackStore)
}
