package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securedrop/trustchain/bootstrap"
	"github.com/securedrop/trustchain/keystore"
	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/submission"
)

func TestInitThenVerify(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")

	rootCmd.SetArgs([]string{"init", "--keys-dir", dir, "--journalists", "2", "--log-level", "warn"})
	require.NoError(t, Execute())

	assert.FileExists(t, filepath.Join(dir, "root.json"))
	assert.FileExists(t, filepath.Join(dir, "journalist", "journalist2-fetching.json"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"verify", "--keys-dir", dir, "--probe-fetching", "--log-level", "warn"})
	require.NoError(t, Execute())
	assert.Contains(t, out.String(), "checked 6 keys of 2 journalists")
}

func TestVerifyEmptyDirFails(t *testing.T) {
	rootCmd.SetArgs([]string{"verify", "--keys-dir", t.TempDir(), "--log-level", "warn"})
	assert.Error(t, Execute())
}

func TestVersionMarksUntaggedBuild(t *testing.T) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, Execute())
	assert.Equal(t, "development\n", out.String())
	assert.Contains(t, errOut.String(), "untagged source tree")
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRunServerAcceptsBootstrappedJournalist(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	keys, err := keystore.NewFileStore(dir)
	require.NoError(t, err)
	result, err := bootstrap.Run(ctx, keys, bootstrap.Options{Journalists: 1, Generator: pki.NewGenerator()})
	require.NoError(t, err)

	config, err := LoadConfig("")
	require.NoError(t, err)
	config.Keys.Dir = dir
	config.Store.DataDir = dir
	config.Server.MetricsPort = -1
	config.Server.ListenAddress = freeAddr(t)

	stop := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- runServer(ctx, config, stop)
	}()

	baseURL := "http://" + config.Server.ListenAddress
	require.Eventually(t, func() bool {
		res, err := http.Get(baseURL + "/")
		if err != nil {
			return false
		}
		_ = res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	pj := result.Journalists[bootstrap.JournalistName(1)]
	body, err := json.Marshal(submission.Request{
		JournalistKey:         pj.SigningKey.String(),
		JournalistSig:         pj.SigningSignature.String(),
		JournalistFetchingKey: pj.FetchingKey.String(),
		JournalistFetchingSig: pj.FetchingSignature.String(),
	})
	require.NoError(t, err)

	res, err := http.Post(baseURL+"/journalists", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()

	var got map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "OK", got["status"])

	close(stop)
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRunServerRequiresKeys(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	config.Keys.Dir = t.TempDir()
	config.Server.MetricsPort = -1

	err = runServer(context.Background(), config, make(chan struct{}))
	assert.Error(t, err)
}
