package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securedrop/trustchain/cache"
	"github.com/securedrop/trustchain/keystore"
	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/shared/status"
	"github.com/securedrop/trustchain/trust"
)

func newStore(t *testing.T) *keystore.FileStore {
	t.Helper()
	s, err := keystore.NewFileStore(filepath.Join(t.TempDir(), "keys"))
	require.NoError(t, err)
	return s
}

func TestRunCreatesHierarchy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	result, err := Run(ctx, s, Options{})
	require.NoError(t, err)
	require.Len(t, result.Journalists, DefaultJournalists)

	for _, name := range []string{"root", "intermediate"} {
		assert.FileExists(t, filepath.Join(s.Dir(), name+".json"))
	}
	for i := 1; i <= DefaultJournalists; i++ {
		name := JournalistName(i)
		assert.FileExists(t, filepath.Join(s.Dir(), "journalist", name+".json"))
		assert.FileExists(t, filepath.Join(s.Dir(), "journalist", name+"-fetching.json"))
	}

	require.NoError(t, trust.VerifyRootIntermediate(ctx, s))

	cacheStore, err := cache.NewStore(ctx, time.Minute, time.Minute)
	require.NoError(t, err)
	v := trust.NewVerifier(s, cacheStore)

	for name, pj := range result.Journalists {
		assert.NoError(t, v.VerifyIntermediateSignature(ctx, pj.SigningKey[:], pj.SigningSignature[:]), name)
		assert.NoError(t, v.VerifyIntermediateSignature(ctx, pj.FetchingKey[:], pj.FetchingSignature[:]), name)
	}

	report, err := trust.Audit(ctx, s, trust.AuditOptions{ProbeFetching: true})
	require.NoError(t, err)
	assert.Equal(t, DefaultJournalists, report.Journalists)
}

func TestRunTwiceProducesDistinctKeys(t *testing.T) {
	ctx := context.Background()

	first, err := Run(ctx, newStore(t), Options{Journalists: 1})
	require.NoError(t, err)
	second, err := Run(ctx, newStore(t), Options{Journalists: 1})
	require.NoError(t, err)

	assert.False(t, first.Root.Equal(second.Root))
	assert.False(t, first.Intermediate.Equal(second.Intermediate))
	assert.NotEqual(t, first.Journalists["journalist1"], second.Journalists["journalist1"])
}

func TestRunOverwritesPreviousRun(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := Run(ctx, s, Options{Journalists: 1})
	require.NoError(t, err)
	second, err := Run(ctx, s, Options{Journalists: 1})
	require.NoError(t, err)

	root, err := keystore.LoadRoot(ctx, s)
	require.NoError(t, err)
	assert.True(t, root.PublicKey().Equal(second.Root))
}

func TestTamperedJournalistKeyIsRejected(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	result, err := Run(ctx, s, Options{})
	require.NoError(t, err)

	cacheStore, err := cache.NewStore(ctx, time.Minute, time.Minute)
	require.NoError(t, err)
	v := trust.NewVerifier(s, cacheStore)

	pj := result.Journalists["journalist1"]
	tampered := pj.SigningKey
	tampered[0] ^= 0x80

	err = v.VerifyIntermediateSignature(ctx, tampered[:], pj.SigningSignature[:])
	assert.Equal(t, status.SignatureInvalid, status.TypeOf(err))
}

func TestRunStopsAtFirstError(t *testing.T) {
	ctx := context.Background()

	var saved []string
	failing := &keystore.MockStore{
		SaveRecordFunc: func(ctx context.Context, r *keystore.Record) error {
			if r.Name == keystore.IntermediateName {
				return status.Errorf(status.IOFailure, "disk full")
			}
			saved = append(saved, r.Name)
			return nil
		},
	}

	_, err := Run(ctx, failing, Options{})
	require.Error(t, err)
	assert.Equal(t, status.IOFailure, status.TypeOf(err))
	assert.Equal(t, []string{keystore.RootName}, saved)
}

func TestRunFailsWhenKeyDirIsNotADirectory(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.RemoveAll(s.Dir()))
	require.NoError(t, os.WriteFile(s.Dir(), []byte("not a directory"), 0600))

	_, err := Run(context.Background(), s, Options{Generator: pki.NewGenerator()})
	assert.Equal(t, status.IOFailure, status.TypeOf(err))
}
