package keystore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/awnumar/memguard"
	"github.com/hashicorp/go-version"

	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/shared/status"
)

const (
	// RecordVersion is written into every new record
	RecordVersion = "1.0.0"

	supportedVersions = ">= 1.0.0, < 2.0.0"
)

// Kind tells which key algorithm a record holds
type Kind string

const (
	KindSigning    Kind = "signing"
	KindEncrypting Kind = "encrypting"
)

var (
	nameRegexp        = regexp.MustCompile(`^[A-Za-z0-9_-]+(/[A-Za-z0-9_-]+)*$`)
	versionConstraint version.Constraints
)

func init() {
	c, err := version.NewConstraint(supportedVersions)
	if err != nil {
		panic(err)
	}
	versionConstraint = c
}

// Record is the persisted form of one principal's key pair. Byte fields are standard base64 in JSON.
// The root record has no signature.
type Record struct {
	Version   string `json:"version"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Secret    []byte `json:"secret"`
	Public    []byte `json:"public"`
	Signature []byte `json:"signature,omitempty"`
}

// CheckName validates a record name: slash separated segments of letters, digits, '-' and '_'
func CheckName(name string) error {
	if !nameRegexp.MatchString(name) {
		return status.Errorf(status.InvalidArgument, "invalid key name %q", name)
	}
	return nil
}

// EncodeRecord renders r in its canonical form. DecodeRecord followed by EncodeRecord reproduces
// the input byte for byte.
func EncodeRecord(r *Record) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, status.Wrapf(err, status.InvalidArgument, "record %q", r.Name)
	}
	bs, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return nil, status.Wrapf(err, status.Internal, "encode record %s", r.Name)
	}
	return bs, nil
}

// DecodeRecord parses and validates a record. Any structural problem, including input that
// differs from what EncodeRecord produces for the same record, is a MalformedStorage error.
func DecodeRecord(bs []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(bs))
	dec.DisallowUnknownFields()

	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, status.Wrapf(err, status.MalformedStorage, "decode record")
	}
	if err := r.validate(); err != nil {
		return nil, status.Wrapf(err, status.MalformedStorage, "record %q", r.Name)
	}

	// only the canonical encoding is accepted, so that a record has exactly one stored form
	canonical, err := EncodeRecord(&r)
	if err != nil {
		return nil, status.Wrapf(err, status.MalformedStorage, "record %q", r.Name)
	}
	defer memguard.WipeBytes(canonical)
	if !bytes.Equal(canonical, bs) {
		return nil, status.Errorf(status.MalformedStorage, "record %q is not in canonical form", r.Name)
	}

	return &r, nil
}

func (r *Record) validate() error {
	v, err := version.NewVersion(r.Version)
	if err != nil {
		return fmt.Errorf("version %q: %w", r.Version, err)
	}
	if !versionConstraint.Check(v) {
		return fmt.Errorf("unsupported record version %s, want %s", r.Version, supportedVersions)
	}

	if err := CheckName(r.Name); err != nil {
		return err
	}

	if len(r.Secret) != pki.SecretKeySize {
		return fmt.Errorf("secret must be %d bytes, got %d", pki.SecretKeySize, len(r.Secret))
	}
	if len(r.Public) != pki.PublicKeySize {
		return fmt.Errorf("public key must be %d bytes, got %d", pki.PublicKeySize, len(r.Public))
	}

	switch {
	case r.Name == RootName && len(r.Signature) != 0:
		return fmt.Errorf("root record must not carry a signature")
	case r.Name != RootName && len(r.Signature) != pki.SignatureSize:
		return fmt.Errorf("signature must be %d bytes, got %d", pki.SignatureSize, len(r.Signature))
	}

	var derived []byte
	switch r.Kind {
	case KindSigning:
		kp, err := pki.NewSigningKeyPairFromSecret(r.Secret)
		if err != nil {
			return err
		}
		derived = kp.PublicKey().Bytes()
		kp.Destroy()
	case KindEncrypting:
		if r.Name == RootName {
			return fmt.Errorf("root record must be a signing key")
		}
		kp, err := pki.NewEncryptingKeyPairFromSecret(r.Secret)
		if err != nil {
			return err
		}
		pub := kp.PublicKey()
		derived = pub[:]
		kp.Destroy()
	default:
		return fmt.Errorf("unknown key kind %q", r.Kind)
	}

	if !bytes.Equal(derived, r.Public) {
		return fmt.Errorf("public key does not match secret")
	}

	return nil
}

// NewSigningRecord builds a record for a signing key pair. sig is nil for the root.
func NewSigningRecord(name string, key *pki.SigningKeyPair, sig *pki.Signature) *Record {
	r := &Record{
		Version: RecordVersion,
		Name:    name,
		Kind:    KindSigning,
		Secret:  key.Secret(),
		Public:  key.PublicKey().Bytes(),
	}
	if sig != nil {
		r.Signature = sig.Bytes()
	}
	return r
}

// NewEncryptingRecord builds a record for a signed encrypting key pair
func NewEncryptingRecord(name string, key *pki.SignedEncryptingKeyPair) *Record {
	pub := key.Key.PublicKey()
	return &Record{
		Version:   RecordVersion,
		Name:      name,
		Kind:      KindEncrypting,
		Secret:    key.Key.Secret(),
		Public:    pub[:],
		Signature: key.Signature.Bytes(),
	}
}

// SigningKeyPair rebuilds the signing key pair held by r
func (r *Record) SigningKeyPair() (*pki.SigningKeyPair, error) {
	if r.Kind != KindSigning {
		return nil, status.Errorf(status.MalformedStorage, "record %q holds a %s key, want %s", r.Name, r.Kind, KindSigning)
	}
	return pki.NewSigningKeyPairFromSecret(r.Secret)
}

// EncryptingKeyPair rebuilds the encrypting key pair held by r
func (r *Record) EncryptingKeyPair() (*pki.EncryptingKeyPair, error) {
	if r.Kind != KindEncrypting {
		return nil, status.Errorf(status.MalformedStorage, "record %q holds a %s key, want %s", r.Name, r.Kind, KindEncrypting)
	}
	return pki.NewEncryptingKeyPairFromSecret(r.Secret)
}

// VerifyingKey returns the public key of a signing record
func (r *Record) VerifyingKey() (pki.VerifyingKey, error) {
	if r.Kind != KindSigning {
		return pki.VerifyingKey{}, status.Errorf(status.MalformedStorage, "record %q cannot verify signatures", r.Name)
	}
	k, err := pki.ParseVerifyingKey(r.Public)
	if err != nil {
		return k, status.Wrapf(err, status.MalformedStorage, "record %q", r.Name)
	}
	return k, nil
}

// ParsedSignature returns the signature over the public key
func (r *Record) ParsedSignature() (pki.Signature, error) {
	sig, err := pki.ParseSignature(r.Signature)
	if err != nil {
		return sig, status.Wrapf(err, status.MalformedStorage, "record %q", r.Name)
	}
	return sig, nil
}

// Wipe zeroes the secret held by the record
func (r *Record) Wipe() {
	memguard.WipeBytes(r.Secret)
}
