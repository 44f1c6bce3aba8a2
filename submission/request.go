package submission

import (
	"encoding/base64"
	"strings"

	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/shared/status"
)

// Request is the body of a journalist key submission. All fields are standard base64.
type Request struct {
	JournalistKey         string `json:"journalist_key"`
	JournalistSig         string `json:"journalist_sig"`
	JournalistFetchingKey string `json:"journalist_fetching_key"`
	JournalistFetchingSig string `json:"journalist_fetching_sig"`
}

const (
	fieldJournalistKey         = "journalist_key"
	fieldJournalistSig         = "journalist_sig"
	fieldJournalistFetchingKey = "journalist_fetching_key"
	fieldJournalistFetchingSig = "journalist_fetching_sig"
)

// Decode checks the shape of every field and converts the request into key material. It does
// no cryptographic work.
func Decode(req Request) (*pki.PublicJournalist, error) {
	signingKey, err := decodeField(fieldJournalistKey, req.JournalistKey, pki.PublicKeySize)
	if err != nil {
		return nil, err
	}
	signingSig, err := decodeField(fieldJournalistSig, req.JournalistSig, pki.SignatureSize)
	if err != nil {
		return nil, err
	}
	fetchingKey, err := decodeField(fieldJournalistFetchingKey, req.JournalistFetchingKey, pki.EncryptingKeySize)
	if err != nil {
		return nil, err
	}
	fetchingSig, err := decodeField(fieldJournalistFetchingSig, req.JournalistFetchingSig, pki.SignatureSize)
	if err != nil {
		return nil, err
	}

	pj := &pki.PublicJournalist{}
	copy(pj.SigningKey[:], signingKey)
	copy(pj.SigningSignature[:], signingSig)
	copy(pj.FetchingKey[:], fetchingKey)
	copy(pj.FetchingSignature[:], fetchingSig)

	return pj, nil
}

func decodeField(field, value string, size int) ([]byte, error) {
	if value == "" {
		return nil, status.NewDecodeError(field, "missing")
	}

	// the decoder skips line breaks, which would give one key several accepted spellings
	if strings.ContainsAny(value, "\r\n") {
		return nil, status.NewDecodeError(field, "invalid base64: line break")
	}

	raw, err := base64.StdEncoding.Strict().DecodeString(value)
	if err != nil {
		return nil, status.NewDecodeError(field, "invalid base64: %v", err)
	}

	if len(raw) != size {
		return nil, status.NewDecodeError(field, "expected %d bytes, got %d", size, len(raw))
	}

	return raw, nil
}
