package pki

import (
	"crypto/ed25519"

	"github.com/securedrop/trustchain/shared/status"
)

// Verify checks that signature was produced over message by the secret behind parent.
// It returns nil only for a valid signature; everything else is a SignatureInvalid error.
func Verify(parent VerifyingKey, message []byte, signature []byte) error {
	if len(signature) != SignatureSize {
		return status.Errorf(status.SignatureInvalid, "signature must be %d bytes, got %d", SignatureSize, len(signature))
	}

	if !ed25519.Verify(parent[:], message, signature) {
		return status.NewSignatureInvalidError("key " + base64Prefix(message))
	}

	return nil
}

// base64Prefix shortens a key for error messages
func base64Prefix(b []byte) string {
	if len(b) != PublicKeySize {
		return "<invalid>"
	}
	var k VerifyingKey
	copy(k[:], b)
	s := k.String()
	return s[:8]
}
