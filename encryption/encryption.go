package encryption

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/securedrop/trustchain/pki"
)

const (
	nonceSize = 24
	probeSize = 32
)

// Messages for a journalist are sealed to its fetching key with NaCl box
// (Curve25519, XSalsa20 and Poly1305). The nonce is prepended to the ciphertext.

// Encrypt seals msg from privateKey to peerPublicKey with a fresh random nonce
func Encrypt(msg []byte, peerPublicKey wgtypes.Key, privateKey wgtypes.Key) ([]byte, error) {
	nonce, err := genNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return box.Seal(nonce[:], msg, nonce, toByte32(peerPublicKey), toByte32(privateKey)), nil
}

// Decrypt opens a message produced by Encrypt. peerPublicKey is the sender's public key.
func Decrypt(encryptedMsg []byte, peerPublicKey wgtypes.Key, privateKey wgtypes.Key) ([]byte, error) {
	if len(encryptedMsg) < nonceSize {
		return nil, fmt.Errorf("invalid encrypted message length: message too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], encryptedMsg[:nonceSize])

	opened, ok := box.Open(nil, encryptedMsg[nonceSize:], &nonce, toByte32(peerPublicKey), toByte32(privateKey))
	if !ok {
		return nil, fmt.Errorf("failed to decrypt message from %s", peerPublicKey.String())
	}

	return opened, nil
}

// ProbeFetchingKey seals a random message to public from an ephemeral sender and checks that
// the secret of pair opens it. public is usually the key as published, not the one derived from pair.
func ProbeFetchingKey(public wgtypes.Key, pair *pki.EncryptingKeyPair) error {
	ephemeral, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return fmt.Errorf("generate ephemeral key: %w", err)
	}

	probe := make([]byte, probeSize)
	if _, err := rand.Read(probe); err != nil {
		return fmt.Errorf("generate probe: %w", err)
	}

	sealed, err := Encrypt(probe, public, ephemeral)
	if err != nil {
		return err
	}

	opened, err := Decrypt(sealed, ephemeral.PublicKey(), pair.PrivateKey())
	if err != nil {
		return err
	}

	if !bytes.Equal(opened, probe) {
		return fmt.Errorf("probe mismatch for fetching key %s", public.String())
	}

	return nil
}

func genNonce() (*[nonceSize]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return &nonce, nil
}

// toByte32 converts a key to the array form used by nacl/box
func toByte32(key wgtypes.Key) *[32]byte {
	return (*[32]byte)(&key)
}
