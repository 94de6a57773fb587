package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gradewise/gradewise/internal/domain"
	"github.com/gradewise/gradewise/internal/repository"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := repository.NewMemoryTokenStore()
	ctx := context.Background()

	record := domain.TokenRecord{
		UserID:      "U1",
		TokenKey:    "acc_abc",
		TokenSecret: "acc_secret",
		Phase:       domain.PhaseAuthorized,
	}
	require.NoError(t, store.Put(ctx, "user:U1", record, 0))

	got, err := store.Get(ctx, "user:U1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "acc_abc", got.TokenKey)
	require.Equal(t, domain.PhaseAuthorized, got.Phase)
}

func TestMemoryStoreMissingKeyIsNil(t *testing.T) {
	store := repository.NewMemoryTokenStore()

	got, err := store.Get(context.Background(), "user:unknown")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	store := repository.NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user:U1", domain.TokenRecord{TokenKey: "old"}, 0))
	require.NoError(t, store.Put(ctx, "user:U1", domain.TokenRecord{TokenKey: "new"}, 0))

	got, err := store.Get(ctx, "user:U1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "new", got.TokenKey)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := repository.NewMemoryTokenStore()
	ctx := context.Background()

	record := domain.TokenRecord{TokenKey: "req_abc", Phase: domain.PhaseRequested}
	require.NoError(t, store.Put(ctx, "request:req_abc", record, 10*time.Millisecond))

	got, err := store.Get(ctx, "request:req_abc")
	require.NoError(t, err)
	require.NotNil(t, got)

	time.Sleep(20 * time.Millisecond)

	got, err = store.Get(ctx, "request:req_abc")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := repository.NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user:U1", domain.TokenRecord{TokenKey: "acc"}, 0))
	require.NoError(t, store.Delete(ctx, "user:U1"))

	got, err := store.Get(ctx, "user:U1")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, store.Delete(ctx, "user:U1"))
}
