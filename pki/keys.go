package pki

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/securedrop/trustchain/base62"
	"github.com/securedrop/trustchain/shared/status"
)

const (
	// SecretKeySize is the size of a signing secret (Ed25519 seed)
	SecretKeySize = ed25519.SeedSize
	// PublicKeySize is the size of a signing public key
	PublicKeySize = ed25519.PublicKeySize
	// SignatureSize is the size of a signature over a public key
	SignatureSize = ed25519.SignatureSize
	// EncryptingKeySize is the size of both halves of an X25519 key pair
	EncryptingKeySize = wgtypes.KeyLen

	fingerprintSize = 8
)

// VerifyingKey is the public half of a SigningKeyPair
type VerifyingKey [PublicKeySize]byte

// ParseVerifyingKey copies b into a VerifyingKey. b must be exactly PublicKeySize bytes long.
func ParseVerifyingKey(b []byte) (VerifyingKey, error) {
	var k VerifyingKey
	if len(b) != PublicKeySize {
		return k, status.Errorf(status.InvalidArgument, "verifying key must be %d bytes, got %d", PublicKeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Bytes returns a copy of the raw key
func (k VerifyingKey) Bytes() []byte {
	b := make([]byte, PublicKeySize)
	copy(b, k[:])
	return b
}

// String returns the key in standard base64
func (k VerifyingKey) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Equal compares keys in constant time
func (k VerifyingKey) Equal(other VerifyingKey) bool {
	return subtle.ConstantTimeCompare(k[:], other[:]) == 1
}

// Signature is an Ed25519 signature over the raw bytes of a public key
type Signature [SignatureSize]byte

// ParseSignature copies b into a Signature. b must be exactly SignatureSize bytes long.
func ParseSignature(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureSize {
		return s, status.Errorf(status.InvalidArgument, "signature must be %d bytes, got %d", SignatureSize, len(b))
	}
	copy(s[:], b)
	return s, nil
}

// Bytes returns a copy of the raw signature
func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureSize)
	copy(b, s[:])
	return b
}

// String returns the signature in standard base64
func (s Signature) String() string {
	return base64.StdEncoding.EncodeToString(s[:])
}

// SigningKeyPair is an Ed25519 key pair used to sign keys of the level below
type SigningKeyPair struct {
	private ed25519.PrivateKey
}

// NewSigningKeyPairFromSecret rebuilds a key pair from its 32 byte secret
func NewSigningKeyPairFromSecret(secret []byte) (*SigningKeyPair, error) {
	if len(secret) != SecretKeySize {
		return nil, status.Errorf(status.InvalidArgument, "signing secret must be %d bytes, got %d", SecretKeySize, len(secret))
	}
	return &SigningKeyPair{private: ed25519.NewKeyFromSeed(secret)}, nil
}

// Secret returns a copy of the 32 byte secret
func (k *SigningKeyPair) Secret() []byte {
	return k.private.Seed()
}

// PublicKey returns the verifying half of the pair
func (k *SigningKeyPair) PublicKey() VerifyingKey {
	var pub VerifyingKey
	copy(pub[:], k.private[SecretKeySize:])
	return pub
}

// Destroy wipes the secret from memory. The pair is unusable afterwards.
func (k *SigningKeyPair) Destroy() {
	if k == nil || k.private == nil {
		return
	}
	memguard.WipeBytes(k.private)
	k.private = nil
}

// EncryptingKeyPair is an X25519 key pair used to fetch messages addressed to a journalist
type EncryptingKeyPair struct {
	private wgtypes.Key
}

// NewEncryptingKeyPairFromSecret rebuilds a key pair from its 32 byte secret
func NewEncryptingKeyPairFromSecret(secret []byte) (*EncryptingKeyPair, error) {
	key, err := wgtypes.NewKey(secret)
	if err != nil {
		return nil, status.Wrapf(err, status.InvalidArgument, "encrypting secret")
	}
	return &EncryptingKeyPair{private: key}, nil
}

// Secret returns a copy of the 32 byte secret
func (k *EncryptingKeyPair) Secret() []byte {
	b := make([]byte, EncryptingKeySize)
	copy(b, k.private[:])
	return b
}

// PrivateKey returns the secret as a wgtypes key for use with the encryption package
func (k *EncryptingKeyPair) PrivateKey() wgtypes.Key {
	return k.private
}

// PublicKey returns the public half of the pair
func (k *EncryptingKeyPair) PublicKey() wgtypes.Key {
	return k.private.PublicKey()
}

// Destroy wipes the secret from memory
func (k *EncryptingKeyPair) Destroy() {
	if k == nil {
		return
	}
	memguard.WipeBytes(k.private[:])
}

// SignedKeyPair is a signing key pair together with its parent's signature over the public key
type SignedKeyPair struct {
	Key       *SigningKeyPair
	Signature Signature
}

// SignedEncryptingKeyPair is an encrypting key pair together with its parent's signature over the public key
type SignedEncryptingKeyPair struct {
	Key       *EncryptingKeyPair
	Signature Signature
}

// Journalist holds both key pairs of a journalist, each signed by the intermediate
type Journalist struct {
	Signing  *SignedKeyPair
	Fetching *SignedEncryptingKeyPair
}

// Public projects the journalist to the public material sent over the wire
func (j *Journalist) Public() *PublicJournalist {
	return &PublicJournalist{
		SigningKey:        j.Signing.Key.PublicKey(),
		SigningSignature:  j.Signing.Signature,
		FetchingKey:       j.Fetching.Key.PublicKey(),
		FetchingSignature: j.Fetching.Signature,
	}
}

// Destroy wipes both secrets
func (j *Journalist) Destroy() {
	if j == nil {
		return
	}
	if j.Signing != nil {
		j.Signing.Key.Destroy()
	}
	if j.Fetching != nil {
		j.Fetching.Key.Destroy()
	}
}

// PublicJournalist is the public part of a Journalist
type PublicJournalist struct {
	SigningKey        VerifyingKey
	SigningSignature  Signature
	FetchingKey       wgtypes.Key
	FetchingSignature Signature
}

// String identifies the journalist by its signing key
func (p *PublicJournalist) String() string {
	return fmt.Sprintf("journalist %s", p.SigningKey.String())
}

// Fingerprint returns a short base62 identifier of k for logs and command output
func Fingerprint(k VerifyingKey) string {
	sum := sha256.Sum256(k[:])
	return base62.Encode(sum[:fingerprintSize])
}
