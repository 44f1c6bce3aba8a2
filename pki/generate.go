package pki

import (
	"crypto/ed25519"
	"crypto/rand"
	"io"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/securedrop/trustchain/shared/status"
)

// Generator creates key pairs and signs them with a parent key.
// The zero value is not usable, use NewGenerator.
type Generator struct {
	selfCheck bool
	random    io.Reader
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithSelfCheck makes every signature be verified right after it is produced
func WithSelfCheck(enabled bool) GeneratorOption {
	return func(g *Generator) {
		g.selfCheck = enabled
	}
}

// WithRandom replaces the entropy source for signing keys. Encrypting keys always come from crypto/rand.
func WithRandom(r io.Reader) GeneratorOption {
	return func(g *Generator) {
		g.random = r
	}
}

// NewGenerator returns a Generator reading from crypto/rand with self checks disabled
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{random: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var defaultGenerator = NewGenerator()

// GenerateRootKeyPair creates the trust anchor. It carries no signature.
func (g *Generator) GenerateRootKeyPair() (*SigningKeyPair, error) {
	_, private, err := ed25519.GenerateKey(g.random)
	if err != nil {
		return nil, status.Wrapf(err, status.Internal, "generate signing key")
	}
	return &SigningKeyPair{private: private}, nil
}

// GenerateSignedKeyPair creates a signing key pair and signs its public key with parent
func (g *Generator) GenerateSignedKeyPair(parent *SigningKeyPair) (*SignedKeyPair, error) {
	key, err := g.GenerateRootKeyPair()
	if err != nil {
		return nil, err
	}

	pub := key.PublicKey()
	sig, err := g.Sign(parent, pub[:])
	if err != nil {
		key.Destroy()
		return nil, err
	}

	return &SignedKeyPair{Key: key, Signature: sig}, nil
}

// GenerateEncryptingKeyPair creates an X25519 key pair and signs its public key with parent
func (g *Generator) GenerateEncryptingKeyPair(parent *SigningKeyPair) (*SignedEncryptingKeyPair, error) {
	private, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return nil, status.Wrapf(err, status.Internal, "generate encrypting key")
	}
	key := &EncryptingKeyPair{private: private}

	pub := key.PublicKey()
	sig, err := g.Sign(parent, pub[:])
	if err != nil {
		key.Destroy()
		return nil, err
	}

	return &SignedEncryptingKeyPair{Key: key, Signature: sig}, nil
}

// GenerateJournalist creates a signing and a fetching key pair, both signed by intermediate
func (g *Generator) GenerateJournalist(intermediate *SigningKeyPair) (*Journalist, error) {
	signing, err := g.GenerateSignedKeyPair(intermediate)
	if err != nil {
		return nil, err
	}

	fetching, err := g.GenerateEncryptingKeyPair(intermediate)
	if err != nil {
		signing.Key.Destroy()
		return nil, err
	}

	return &Journalist{Signing: signing, Fetching: fetching}, nil
}

// GenerateRootKeyPair creates a root key pair with the default generator
func GenerateRootKeyPair() (*SigningKeyPair, error) {
	return defaultGenerator.GenerateRootKeyPair()
}

// GenerateSignedKeyPair creates a signed key pair with the default generator
func GenerateSignedKeyPair(parent *SigningKeyPair) (*SignedKeyPair, error) {
	return defaultGenerator.GenerateSignedKeyPair(parent)
}

// GenerateEncryptingKeyPair creates a signed encrypting key pair with the default generator
func GenerateEncryptingKeyPair(parent *SigningKeyPair) (*SignedEncryptingKeyPair, error) {
	return defaultGenerator.GenerateEncryptingKeyPair(parent)
}

// GenerateJournalist creates a journalist with the default generator
func GenerateJournalist(intermediate *SigningKeyPair) (*Journalist, error) {
	return defaultGenerator.GenerateJournalist(intermediate)
}
