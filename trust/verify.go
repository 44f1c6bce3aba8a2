package trust

import (
	"context"
	"fmt"

	"github.com/securedrop/trustchain/keystore"
	"github.com/securedrop/trustchain/pki"
)

// VerifyRootIntermediate checks that the stored intermediate key is signed by the stored root.
// Store problems keep their NotFound, IOFailure or MalformedStorage type; a bad signature is
// SignatureInvalid.
func VerifyRootIntermediate(ctx context.Context, s keystore.Store) error {
	_, err := loadCheckedIntermediate(ctx, s)
	return err
}

// loadCheckedIntermediate reads the intermediate record once and returns its key only if that
// same record is signed by the stored root
func loadCheckedIntermediate(ctx context.Context, s keystore.Store) (pki.VerifyingKey, error) {
	rootKey, err := loadVerifyingKey(ctx, s, keystore.RootName)
	if err != nil {
		return pki.VerifyingKey{}, err
	}

	intermediate, err := s.LoadRecord(ctx, keystore.IntermediateName)
	if err != nil {
		return pki.VerifyingKey{}, err
	}
	defer intermediate.Wipe()

	if err := pki.Verify(rootKey, intermediate.Public, intermediate.Signature); err != nil {
		return pki.VerifyingKey{}, fmt.Errorf("intermediate is not signed by root: %w", err)
	}

	return intermediate.VerifyingKey()
}

func loadVerifyingKey(ctx context.Context, s keystore.Store, name string) (pki.VerifyingKey, error) {
	r, err := s.LoadRecord(ctx, name)
	if err != nil {
		return pki.VerifyingKey{}, err
	}
	defer r.Wipe()
	return r.VerifyingKey()
}
