package trust

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/securedrop/trustchain/encryption"
	"github.com/securedrop/trustchain/keystore"
	"github.com/securedrop/trustchain/pki"
)

// AuditOptions configures Audit
type AuditOptions struct {
	// ProbeFetching additionally seals a message to every published fetching key and opens it
	// with the stored secret
	ProbeFetching bool
	MaxDepth      int
}

// AuditReport lists what Audit looked at
type AuditReport struct {
	Root        pki.VerifyingKey
	Checked     []string
	Journalists int
}

// Audit verifies every stored key against its parent up to the root and returns all failures
// at once. The report is returned even when err is not nil.
func Audit(ctx context.Context, s keystore.Store, opts AuditOptions) (*AuditReport, error) {
	report := &AuditReport{}
	var result *multierror.Error

	anchor, err := loadVerifyingKey(ctx, s, keystore.RootName)
	if err != nil {
		return report, multierror.Append(result, fmt.Errorf("root: %w", err))
	}
	report.Root = anchor
	report.Checked = append(report.Checked, keystore.RootName)

	intermediate, err := s.LoadRecord(ctx, keystore.IntermediateName)
	if err != nil {
		return report, multierror.Append(result, fmt.Errorf("intermediate: %w", err))
	}
	intermediate.Wipe()

	interNode := &pki.Node{
		Name:      keystore.IntermediateName,
		PublicKey: intermediate.Public,
		Signature: intermediate.Signature,
	}
	report.Checked = append(report.Checked, keystore.IntermediateName)
	if err := pki.VerifyChain(interNode, anchor, opts.MaxDepth); err != nil {
		result = multierror.Append(result, err)
	}

	names, err := keystore.ListJournalists(ctx, s)
	if err != nil {
		return report, multierror.Append(result, fmt.Errorf("list journalists: %w", err))
	}

	for _, name := range names {
		checked, err := auditJournalist(ctx, s, name, interNode, anchor, opts)
		report.Checked = append(report.Checked, checked...)
		report.Journalists++
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	if result.ErrorOrNil() == nil {
		log.WithContext(ctx).Infof("audited %d keys, all chained to root %s", len(report.Checked), pki.Fingerprint(anchor))
	}

	return report, result.ErrorOrNil()
}

func auditJournalist(ctx context.Context, s keystore.Store, name string, interNode *pki.Node, anchor pki.VerifyingKey, opts AuditOptions) ([]string, error) {
	var result *multierror.Error
	var checked []string

	for _, recordName := range []string{keystore.JournalistRecordName(name), keystore.FetchingRecordName(name)} {
		r, err := s.LoadRecord(ctx, recordName)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", recordName, err))
			continue
		}
		checked = append(checked, recordName)

		node := &pki.Node{Name: recordName, PublicKey: r.Public, Signature: r.Signature, Parent: interNode}
		if err := pki.VerifyChain(node, anchor, opts.MaxDepth); err != nil {
			result = multierror.Append(result, err)
		}

		if opts.ProbeFetching && r.Kind == keystore.KindEncrypting {
			if err := probe(r); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s: %w", recordName, err))
			}
		}
		r.Wipe()
	}

	return checked, result.ErrorOrNil()
}

func probe(r *keystore.Record) error {
	pair, err := r.EncryptingKeyPair()
	if err != nil {
		return err
	}
	defer pair.Destroy()

	published, err := wgtypes.NewKey(r.Public)
	if err != nil {
		return err
	}

	return encryption.ProbeFetchingKey(published, pair)
}
