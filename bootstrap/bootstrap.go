package bootstrap

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/securedrop/trustchain/keystore"
	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/trust"
	"github.com/securedrop/trustchain/util"
)

// DefaultJournalists is the number of journalists created when Options.Journalists is zero
const DefaultJournalists = 3

// Options configures Run
type Options struct {
	// Journalists is how many journalist identities to create, named journalist1..N
	Journalists int
	// Generator creates the keys. Nil means a generator with self checks enabled.
	Generator *pki.Generator
}

// Result holds the public material created by Run
type Result struct {
	Root         pki.VerifyingKey
	Intermediate pki.VerifyingKey
	Journalists  map[string]*pki.PublicJournalist
}

// JournalistName returns the name of the i-th journalist, counting from 1
func JournalistName(i int) string {
	return fmt.Sprintf("journalist%d", i)
}

// Run creates and stores a fresh root, an intermediate signed by it and the journalists signed
// by the intermediate. Steps run strictly in order and the first error stops the run; files
// written before the failure stay in place.
func Run(ctx context.Context, s keystore.Store, opts Options) (*Result, error) {
	ctx = util.SystemContext(ctx, "bootstrap")

	gen := opts.Generator
	if gen == nil {
		gen = pki.NewGenerator(pki.WithSelfCheck(true))
	}
	count := opts.Journalists
	if count <= 0 {
		count = DefaultJournalists
	}

	root, err := gen.GenerateRootKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate root key: %w", err)
	}
	defer root.Destroy()

	if err := keystore.SaveRoot(ctx, s, root); err != nil {
		return nil, fmt.Errorf("store root key: %w", err)
	}
	log.WithContext(ctx).WithField("fingerprint", pki.Fingerprint(root.PublicKey())).Info("Generated root key")

	intermediate, err := gen.GenerateSignedKeyPair(root)
	if err != nil {
		return nil, fmt.Errorf("generate intermediate key: %w", err)
	}
	defer intermediate.Key.Destroy()

	if err := keystore.SaveIntermediate(ctx, s, intermediate); err != nil {
		return nil, fmt.Errorf("store intermediate key: %w", err)
	}

	if err := trust.VerifyRootIntermediate(ctx, s); err != nil {
		return nil, fmt.Errorf("check stored intermediate: %w", err)
	}
	log.WithContext(ctx).WithField("fingerprint", pki.Fingerprint(intermediate.Key.PublicKey())).Info("Generated and signed intermediate key")

	result := &Result{
		Root:         root.PublicKey(),
		Intermediate: intermediate.Key.PublicKey(),
		Journalists:  make(map[string]*pki.PublicJournalist, count),
	}

	for i := 1; i <= count; i++ {
		name := JournalistName(i)

		journalist, err := gen.GenerateJournalist(intermediate.Key)
		if err != nil {
			return nil, fmt.Errorf("generate %s keys: %w", name, err)
		}

		err = keystore.SaveJournalist(ctx, s, name, journalist)
		public := journalist.Public()
		result.Journalists[name] = public
		journalist.Destroy()
		if err != nil {
			return nil, fmt.Errorf("store %s keys: %w", name, err)
		}

		log.WithContext(ctx).WithField("fingerprint", pki.Fingerprint(public.SigningKey)).Infof("Generated and signed %s key", name)
	}

	log.WithContext(ctx).Info("Done!")

	return result, nil
}
