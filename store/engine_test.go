package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securedrop/trustchain/store/testutil"
)

// newStoreFromEnv opens the engine named by TRUSTCHAIN_STORE_ENGINE, starting a container for
// postgres and mysql
func newStoreFromEnv(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()

	kind := getStoreEngine("")
	switch kind {
	case PostgresStoreEngine:
		cleanup, err := testutil.CreatePostgresTestContainer()
		require.NoError(t, err)
		t.Cleanup(cleanup)
	case MysqlStoreEngine:
		cleanup, err := testutil.CreateMysqlTestContainer()
		require.NoError(t, err)
		t.Cleanup(cleanup)
	}

	s, err := NewStore(ctx, kind, t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close(ctx)
	})
	return s
}

func TestStoreEngineUpsert(t *testing.T) {
	ctx := context.Background()
	s := newStoreFromEnv(t)

	first := newPublicJournalist(t)
	saved, err := s.SaveJournalist(ctx, first)
	require.NoError(t, err)

	second := newPublicJournalist(t)
	second.SigningKey = first.SigningKey
	updated, err := s.SaveJournalist(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)

	got, err := s.GetJournalist(ctx, first.SigningKey)
	require.NoError(t, err)
	public, err := got.Public()
	require.NoError(t, err)
	assert.Equal(t, second, public)

	_, err = s.SaveJournalist(ctx, newPublicJournalist(t))
	require.NoError(t, err)

	all, err := s.GetAllJournalists(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
