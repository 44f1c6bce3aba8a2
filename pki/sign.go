package pki

import (
	"crypto/ed25519"

	log "github.com/sirupsen/logrus"

	"github.com/securedrop/trustchain/shared/status"
)

// Sign signs message exactly as given. With self checks enabled the signature is
// verified before it is returned.
func (g *Generator) Sign(key *SigningKeyPair, message []byte) (Signature, error) {
	var sig Signature
	if key == nil || len(key.private) != ed25519.PrivateKeySize {
		return sig, status.Errorf(status.InvalidArgument, "signing key is missing or destroyed")
	}

	copy(sig[:], ed25519.Sign(key.private, message))

	if g.selfCheck {
		if err := Verify(key.PublicKey(), message, sig[:]); err != nil {
			log.Errorf("self check failed for signature by %s", key.PublicKey())
			return Signature{}, status.Wrapf(status.ErrSelfCheckFailed, status.Internal, "sign")
		}
	}

	return sig, nil
}

// Sign signs message with the default generator
func Sign(key *SigningKeyPair, message []byte) (Signature, error) {
	return defaultGenerator.Sign(key, message)
}
