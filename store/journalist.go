package store

import (
	"encoding/base64"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/shared/status"
)

// Journalist is an accepted journalist submission. Keys and signatures are standard base64.
type Journalist struct {
	ID                string `gorm:"primaryKey"`
	SigningKey        string `gorm:"uniqueIndex;size:64"`
	SigningSignature  string
	FetchingKey       string
	FetchingSignature string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func newJournalist(id string, pj *pki.PublicJournalist) *Journalist {
	return &Journalist{
		ID:                id,
		SigningKey:        pj.SigningKey.String(),
		SigningSignature:  pj.SigningSignature.String(),
		FetchingKey:       pj.FetchingKey.String(),
		FetchingSignature: pj.FetchingSignature.String(),
	}
}

// Public converts the stored row back to key material
func (j *Journalist) Public() (*pki.PublicJournalist, error) {
	decode := func(field, value string) ([]byte, error) {
		b, err := base64.StdEncoding.Strict().DecodeString(value)
		if err != nil {
			return nil, status.Wrapf(err, status.MalformedStorage, "journalist %s: %s", j.ID, field)
		}
		return b, nil
	}

	raw, err := decode("signing key", j.SigningKey)
	if err != nil {
		return nil, err
	}
	signingKey, err := pki.ParseVerifyingKey(raw)
	if err != nil {
		return nil, status.Wrapf(err, status.MalformedStorage, "journalist %s", j.ID)
	}

	raw, err = decode("signing signature", j.SigningSignature)
	if err != nil {
		return nil, err
	}
	signingSig, err := pki.ParseSignature(raw)
	if err != nil {
		return nil, status.Wrapf(err, status.MalformedStorage, "journalist %s", j.ID)
	}

	fetchingKey, err := wgtypes.ParseKey(j.FetchingKey)
	if err != nil {
		return nil, status.Wrapf(err, status.MalformedStorage, "journalist %s: fetching key", j.ID)
	}

	raw, err = decode("fetching signature", j.FetchingSignature)
	if err != nil {
		return nil, err
	}
	fetchingSig, err := pki.ParseSignature(raw)
	if err != nil {
		return nil, status.Wrapf(err, status.MalformedStorage, "journalist %s", j.ID)
	}

	return &pki.PublicJournalist{
		SigningKey:        signingKey,
		SigningSignature:  signingSig,
		FetchingKey:       fetchingKey,
		FetchingSignature: fetchingSig,
	}, nil
}
