package submission

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/shared/status"
	"github.com/securedrop/trustchain/store"
	"github.com/securedrop/trustchain/telemetry"
)

// IntermediateVerifier checks a signature against the current intermediate key
type IntermediateVerifier interface {
	VerifyIntermediateSignature(ctx context.Context, candidate, signature []byte) error
}

// JournalistStore persists accepted journalists
type JournalistStore interface {
	SaveJournalist(ctx context.Context, pj *pki.PublicJournalist) (*store.Journalist, error)
}

// Validator accepts a journalist's public keys only if both carry a valid intermediate signature
type Validator struct {
	verifier IntermediateVerifier
	store    JournalistStore
	metrics  *telemetry.SubmissionMetrics
}

// NewValidator creates a Validator. metrics may be nil.
func NewValidator(verifier IntermediateVerifier, journalists JournalistStore, metrics *telemetry.SubmissionMetrics) *Validator {
	return &Validator{
		verifier: verifier,
		store:    journalists,
		metrics:  metrics,
	}
}

// Submit decodes req, verifies the signing and fetching keys against the intermediate and
// stores the journalist. The returned error is classified by status type for logging only.
func (v *Validator) Submit(ctx context.Context, req Request) (*store.Journalist, error) {
	start := time.Now()

	j, err := v.submit(ctx, req)
	if err != nil {
		kind := status.TypeOf(err).String()
		log.WithContext(ctx).Warnf("rejected journalist submission (%s): %v", kind, err)
		v.metrics.CountRejected(kind, time.Since(start))
		return nil, err
	}

	log.WithContext(ctx).Infof("accepted journalist %s with signing key %s", j.ID, j.SigningKey)
	v.metrics.CountAccepted(time.Since(start))
	return j, nil
}

func (v *Validator) submit(ctx context.Context, req Request) (*store.Journalist, error) {
	pj, err := Decode(req)
	if err != nil {
		return nil, err
	}

	err = v.verifier.VerifyIntermediateSignature(ctx, pj.SigningKey[:], pj.SigningSignature[:])
	if err != nil {
		return nil, err
	}

	err = v.verifier.VerifyIntermediateSignature(ctx, pj.FetchingKey[:], pj.FetchingSignature[:])
	if err != nil {
		return nil, err
	}

	return v.store.SaveJournalist(ctx, pj)
}
