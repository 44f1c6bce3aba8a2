package keystore

import (
	"context"
	"strings"

	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/shared/status"
)

// JournalistRecordName returns the record name of a journalist's signing key
func JournalistRecordName(journalist string) string {
	return JournalistPrefix + "/" + journalist
}

// FetchingRecordName returns the record name of a journalist's fetching key
func FetchingRecordName(journalist string) string {
	return JournalistRecordName(journalist) + FetchingSuffix
}

// SaveRoot stores the root key pair
func SaveRoot(ctx context.Context, s Store, root *pki.SigningKeyPair) error {
	r := NewSigningRecord(RootName, root, nil)
	defer r.Wipe()
	return s.SaveRecord(ctx, r)
}

// SaveIntermediate stores the intermediate key pair with the root's signature
func SaveIntermediate(ctx context.Context, s Store, intermediate *pki.SignedKeyPair) error {
	r := NewSigningRecord(IntermediateName, intermediate.Key, &intermediate.Signature)
	defer r.Wipe()
	return s.SaveRecord(ctx, r)
}

// SaveJournalist stores both key pairs of a journalist
func SaveJournalist(ctx context.Context, s Store, name string, j *pki.Journalist) error {
	signing := NewSigningRecord(JournalistRecordName(name), j.Signing.Key, &j.Signing.Signature)
	defer signing.Wipe()
	if err := s.SaveRecord(ctx, signing); err != nil {
		return err
	}

	fetching := NewEncryptingRecord(FetchingRecordName(name), j.Fetching)
	defer fetching.Wipe()
	return s.SaveRecord(ctx, fetching)
}

// LoadRoot reads the root key pair
func LoadRoot(ctx context.Context, s Store) (*pki.SigningKeyPair, error) {
	r, err := s.LoadRecord(ctx, RootName)
	if err != nil {
		return nil, err
	}
	defer r.Wipe()
	return r.SigningKeyPair()
}

// LoadIntermediate reads the intermediate key pair and its signature
func LoadIntermediate(ctx context.Context, s Store) (*pki.SignedKeyPair, error) {
	r, err := s.LoadRecord(ctx, IntermediateName)
	if err != nil {
		return nil, err
	}
	defer r.Wipe()
	return signedKeyPair(r)
}

// LoadJournalist reads both key pairs of a journalist
func LoadJournalist(ctx context.Context, s Store, name string) (*pki.Journalist, error) {
	r, err := s.LoadRecord(ctx, JournalistRecordName(name))
	if err != nil {
		return nil, err
	}
	defer r.Wipe()
	signing, err := signedKeyPair(r)
	if err != nil {
		return nil, err
	}

	fr, err := s.LoadRecord(ctx, FetchingRecordName(name))
	if err != nil {
		signing.Key.Destroy()
		return nil, err
	}
	defer fr.Wipe()
	key, err := fr.EncryptingKeyPair()
	if err != nil {
		signing.Key.Destroy()
		return nil, err
	}
	sig, err := fr.ParsedSignature()
	if err != nil {
		signing.Key.Destroy()
		key.Destroy()
		return nil, err
	}

	return &pki.Journalist{Signing: signing, Fetching: &pki.SignedEncryptingKeyPair{Key: key, Signature: sig}}, nil
}

// ListJournalists returns the names of all stored journalists
func ListJournalists(ctx context.Context, s Store) ([]string, error) {
	names, err := s.ListRecords(ctx, JournalistPrefix)
	if err != nil {
		return nil, err
	}

	var journalists []string
	for _, n := range names {
		if strings.HasSuffix(n, FetchingSuffix) {
			continue
		}
		journalists = append(journalists, strings.TrimPrefix(n, JournalistPrefix+"/"))
	}
	return journalists, nil
}

func signedKeyPair(r *Record) (*pki.SignedKeyPair, error) {
	key, err := r.SigningKeyPair()
	if err != nil {
		return nil, status.Wrapf(err, status.MalformedStorage, "record %q", r.Name)
	}
	sig, err := r.ParsedSignature()
	if err != nil {
		key.Destroy()
		return nil, err
	}
	return &pki.SignedKeyPair{Key: key, Signature: sig}, nil
}
