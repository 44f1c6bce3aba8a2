package keystore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/shared/status"
)

type hierarchy struct {
	root         *pki.SigningKeyPair
	intermediate *pki.SignedKeyPair
	journalist   *pki.Journalist
}

func newHierarchy(t *testing.T) *hierarchy {
	t.Helper()

	root, err := pki.GenerateRootKeyPair()
	require.NoError(t, err)
	intermediate, err := pki.GenerateSignedKeyPair(root)
	require.NoError(t, err)
	journalist, err := pki.GenerateJournalist(intermediate.Key)
	require.NoError(t, err)

	return &hierarchy{root: root, intermediate: intermediate, journalist: journalist}
}

func jsonIndent(r *Record) ([]byte, error) {
	return json.MarshalIndent(r, "", "    ")
}

func TestRecordRoundTrip(t *testing.T) {
	h := newHierarchy(t)

	records := []*Record{
		NewSigningRecord(RootName, h.root, nil),
		NewSigningRecord(IntermediateName, h.intermediate.Key, &h.intermediate.Signature),
		NewSigningRecord(JournalistRecordName("journalist1"), h.journalist.Signing.Key, &h.journalist.Signing.Signature),
		NewEncryptingRecord(FetchingRecordName("journalist1"), h.journalist.Fetching),
	}

	for _, r := range records {
		t.Run(r.Name, func(t *testing.T) {
			encoded, err := EncodeRecord(r)
			require.NoError(t, err)

			decoded, err := DecodeRecord(encoded)
			require.NoError(t, err)
			assert.Equal(t, r, decoded)

			reencoded, err := EncodeRecord(decoded)
			require.NoError(t, err)
			assert.Equal(t, encoded, reencoded)
		})
	}
}

func TestRootRecordHasNoSignature(t *testing.T) {
	h := newHierarchy(t)

	encoded, err := EncodeRecord(NewSigningRecord(RootName, h.root, nil))
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "signature")

	// a root can not be given a signature
	_, err = EncodeRecord(NewSigningRecord(RootName, h.root, &h.intermediate.Signature))
	assert.Error(t, err)
}

func TestDecodeRecordRejectsMalformed(t *testing.T) {
	h := newHierarchy(t)
	valid := NewSigningRecord(IntermediateName, h.intermediate.Key, &h.intermediate.Signature)
	b64 := base64.StdEncoding.EncodeToString

	otherRoot, err := pki.GenerateRootKeyPair()
	require.NoError(t, err)

	testCases := []struct {
		name   string
		mutate func(r *Record)
		raw    string
	}{
		{name: "not json", raw: "{not json"},
		{name: "unknown field", raw: `{"version":"1.0.0","name":"x","kind":"signing","secret":"","public":"","extra":1}`},
		{name: "future version", mutate: func(r *Record) { r.Version = "2.0.0" }},
		{name: "garbage version", mutate: func(r *Record) { r.Version = "one" }},
		{name: "bad name", mutate: func(r *Record) { r.Name = "../etc/passwd" }},
		{name: "short secret", mutate: func(r *Record) { r.Secret = r.Secret[:31] }},
		{name: "short public", mutate: func(r *Record) { r.Public = r.Public[:31] }},
		{name: "missing signature", mutate: func(r *Record) { r.Signature = nil }},
		{name: "unknown kind", mutate: func(r *Record) { r.Kind = "rsa" }},
		{name: "public does not match secret", mutate: func(r *Record) { r.Public = otherRoot.PublicKey().Bytes() }},
		{name: "bad base64", raw: `{"version":"1.0.0","name":"intermediate","kind":"signing","secret":"%%%","public":"` + b64(make([]byte, 32)) + `"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var bs []byte
			if tc.raw != "" {
				bs = []byte(tc.raw)
			} else {
				r := *valid
				r.Secret = append([]byte(nil), valid.Secret...)
				r.Public = append([]byte(nil), valid.Public...)
				r.Signature = append([]byte(nil), valid.Signature...)
				tc.mutate(&r)
				var err error
				bs, err = jsonIndent(&r)
				require.NoError(t, err)
			}

			_, err := DecodeRecord(bs)
			require.Error(t, err)
			assert.Equal(t, status.MalformedStorage, status.TypeOf(err))
		})
	}
}

func TestDecodeRecordRequiresCanonicalForm(t *testing.T) {
	h := newHierarchy(t)
	r := NewSigningRecord(IntermediateName, h.intermediate.Key, &h.intermediate.Signature)

	canonical, err := EncodeRecord(r)
	require.NoError(t, err)

	compact, err := json.Marshal(r)
	require.NoError(t, err)

	// a 64 byte signature ends in "==" and its last data character carries four unused bits
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	sig := base64.StdEncoding.EncodeToString(r.Signature)
	last := strings.IndexByte(alphabet, sig[len(sig)-3])
	loose := sig[:len(sig)-3] + string(alphabet[last+1]) + "=="
	looseBits := strings.Replace(string(canonical), sig, loose, 1)

	testCases := []struct {
		name string
		raw  []byte
	}{
		{name: "compact json", raw: compact},
		{name: "trailing newline", raw: append(append([]byte(nil), canonical...), '\n')},
		{name: "two space indent", raw: []byte(strings.ReplaceAll(string(canonical), "    ", "  "))},
		{name: "nonzero padding bits", raw: []byte(looseBits)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NotEqual(t, canonical, tc.raw)

			_, err := DecodeRecord(tc.raw)
			require.Error(t, err)
			assert.Equal(t, status.MalformedStorage, status.TypeOf(err))
		})
	}

	decoded, err := DecodeRecord(canonical)
	require.NoError(t, err)
	reencoded, err := EncodeRecord(decoded)
	require.NoError(t, err)
	assert.Equal(t, canonical, reencoded)
}

func TestFileStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "keys"))
	require.NoError(t, err)
	h := newHierarchy(t)

	require.NoError(t, SaveRoot(ctx, s, h.root))
	require.NoError(t, SaveIntermediate(ctx, s, h.intermediate))
	require.NoError(t, SaveJournalist(ctx, s, "journalist1", h.journalist))

	root, err := LoadRoot(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, h.root.Secret(), root.Secret())

	intermediate, err := LoadIntermediate(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, h.intermediate.Key.Secret(), intermediate.Key.Secret())
	assert.Equal(t, h.intermediate.Signature, intermediate.Signature)

	journalist, err := LoadJournalist(ctx, s, "journalist1")
	require.NoError(t, err)
	assert.Equal(t, h.journalist.Public(), journalist.Public())
	assert.Equal(t, h.journalist.Fetching.Key.Secret(), journalist.Fetching.Key.Secret())

	for _, name := range []string{"root", "intermediate", "journalist/journalist1", "journalist/journalist1-fetching"} {
		info, err := os.Stat(filepath.Join(s.Dir(), name+".json"))
		require.NoError(t, err, name)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), name)
	}
}

func TestFileStoreOverwrites(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	first, err := pki.GenerateRootKeyPair()
	require.NoError(t, err)
	second, err := pki.GenerateRootKeyPair()
	require.NoError(t, err)

	require.NoError(t, SaveRoot(ctx, s, first))
	require.NoError(t, SaveRoot(ctx, s, second))

	root, err := LoadRoot(ctx, s)
	require.NoError(t, err)
	assert.True(t, root.PublicKey().Equal(second.PublicKey()))
}

func TestFileStoreLoadErrors(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.LoadRecord(ctx, RootName)
	assert.Equal(t, status.NotFound, status.TypeOf(err))

	_, err = s.LoadRecord(ctx, "../outside")
	assert.Equal(t, status.InvalidArgument, status.TypeOf(err))

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "intermediate.json"), []byte("garbage"), 0600))
	_, err = s.LoadRecord(ctx, IntermediateName)
	assert.Equal(t, status.MalformedStorage, status.TypeOf(err))

	// a record stored under the wrong file name
	h := newHierarchy(t)
	bs, err := EncodeRecord(NewSigningRecord(RootName, h.root, nil))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "intermediate.json"), bs, 0600))
	_, err = s.LoadRecord(ctx, IntermediateName)
	assert.Equal(t, status.MalformedStorage, status.TypeOf(err))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.LoadRecord(cancelled, IntermediateName)
	assert.Equal(t, status.IOFailure, status.TypeOf(err))
}

func TestListJournalists(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	journalists, err := ListJournalists(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, journalists)

	h := newHierarchy(t)
	for _, name := range []string{"journalist2", "journalist1"} {
		require.NoError(t, SaveJournalist(ctx, s, name, h.journalist))
	}

	journalists, err = ListJournalists(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"journalist1", "journalist2"}, journalists)

	names, err := s.ListRecords(ctx, JournalistPrefix)
	require.NoError(t, err)
	assert.Len(t, names, 4)
	for _, n := range names {
		assert.True(t, strings.HasPrefix(n, "journalist/"), n)
	}
}

func TestCheckName(t *testing.T) {
	for _, name := range []string{"root", "journalist/journalist1", "journalist/j_1-fetching"} {
		assert.NoError(t, CheckName(name), name)
	}
	for _, name := range []string{"", "/root", "root/", "a//b", "../x", "a b", "a.json"} {
		assert.Error(t, CheckName(name), name)
	}
}
