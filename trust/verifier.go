package trust

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/eko/gocache/lib/v4/store"
	log "github.com/sirupsen/logrus"

	"github.com/securedrop/trustchain/cache"
	"github.com/securedrop/trustchain/keystore"
	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/shared/status"
	"github.com/securedrop/trustchain/telemetry"
)

const (
	// DefaultLoadTimeout bounds a single read of the intermediate from the key store
	DefaultLoadTimeout = 5 * time.Second
	// DefaultCacheTTL is how long a loaded intermediate key is used before it is read again
	DefaultCacheTTL = time.Minute

	intermediateCacheKey = "trustchain:intermediate:verifying-key"
)

// Verifier checks signatures against the current intermediate key. The key is read from the
// key store on demand and kept in a cache for a limited time, so a replaced intermediate is
// picked up without a restart.
type Verifier struct {
	keys        keystore.Store
	cache       store.StoreInterface
	loadTimeout time.Duration
	cacheTTL    time.Duration
	checkRoot   bool
	metrics     *telemetry.KeyCacheMetrics
}

// VerifierOption configures a Verifier
type VerifierOption func(*Verifier)

// WithLoadTimeout overrides DefaultLoadTimeout
func WithLoadTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.loadTimeout = d
	}
}

// WithCacheTTL overrides DefaultCacheTTL
func WithCacheTTL(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.cacheTTL = d
	}
}

// WithRootCheck makes the verifier accept an intermediate only if it is signed by the stored root
func WithRootCheck(enabled bool) VerifierOption {
	return func(v *Verifier) {
		v.checkRoot = enabled
	}
}

// WithMetrics records cache hits and misses
func WithMetrics(m *telemetry.KeyCacheMetrics) VerifierOption {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// NewVerifier creates a Verifier reading from keys and caching in cacheStore
func NewVerifier(keys keystore.Store, cacheStore store.StoreInterface, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		keys:        keys,
		cache:       cacheStore,
		loadTimeout: DefaultLoadTimeout,
		cacheTTL:    DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyIntermediateSignature checks that signature over candidate was made by the current
// intermediate. It returns the store error if the intermediate cannot be loaded and a
// SignatureInvalid error if the signature does not verify.
func (v *Verifier) VerifyIntermediateSignature(ctx context.Context, candidate, signature []byte) error {
	key, err := v.IntermediateKey(ctx)
	if err != nil {
		return err
	}
	return pki.Verify(key, candidate, signature)
}

// IntermediateKey returns the verifying key of the current intermediate
func (v *Verifier) IntermediateKey(ctx context.Context) (pki.VerifyingKey, error) {
	if key, ok := v.cached(ctx); ok {
		v.metrics.CountHit(ctx)
		return key, nil
	}
	v.metrics.CountMiss(ctx)

	key, err := v.load(ctx)
	if err != nil {
		return pki.VerifyingKey{}, err
	}

	err = v.cache.Set(ctx, intermediateCacheKey, key.String(), store.WithExpiration(v.cacheTTL))
	if err != nil {
		log.WithContext(ctx).Warnf("failed caching intermediate key: %v", err)
	}

	return key, nil
}

// Invalidate drops the cached intermediate so that the next verification reads the store
func (v *Verifier) Invalidate(ctx context.Context) error {
	return v.cache.Delete(ctx, intermediateCacheKey)
}

func (v *Verifier) cached(ctx context.Context) (pki.VerifyingKey, bool) {
	encoded, err := cache.GetString(ctx, v.cache, intermediateCacheKey)
	if err != nil {
		return pki.VerifyingKey{}, false
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		log.WithContext(ctx).Warnf("dropping undecodable cached intermediate key: %v", err)
		return pki.VerifyingKey{}, false
	}

	key, err := pki.ParseVerifyingKey(raw)
	if err != nil {
		log.WithContext(ctx).Warnf("dropping invalid cached intermediate key: %v", err)
		return pki.VerifyingKey{}, false
	}

	return key, true
}

func (v *Verifier) load(ctx context.Context) (pki.VerifyingKey, error) {
	loadCtx, cancel := context.WithTimeout(ctx, v.loadTimeout)
	defer cancel()

	var key pki.VerifyingKey
	var err error
	if v.checkRoot {
		key, err = loadCheckedIntermediate(loadCtx, v.keys)
	} else {
		key, err = loadVerifyingKey(loadCtx, v.keys, keystore.IntermediateName)
	}
	if err != nil {
		if _, ok := status.FromError(err); !ok {
			err = status.Wrapf(err, status.IOFailure, "load intermediate")
		}
		return pki.VerifyingKey{}, err
	}

	log.WithContext(ctx).Debugf("loaded intermediate key %s", key)
	return key, nil
}
