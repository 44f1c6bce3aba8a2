package cmd

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/securedrop/trustchain/keystore"
	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/trust"
)

var (
	verifyProbeFetching bool
	verifyMaxDepth      int

	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "check every stored key against its parent up to the root",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := prepare(cmd)
			if err != nil {
				return err
			}

			keys, err := keystore.NewFileStore(config.Keys.Dir)
			if err != nil {
				return fmt.Errorf("open key directory: %w", err)
			}

			report, err := trust.Audit(cmd.Context(), keys, trust.AuditOptions{
				ProbeFetching: verifyProbeFetching,
				MaxDepth:      verifyMaxDepth,
			})
			if err != nil {
				var merr *multierror.Error
				if errors.As(err, &merr) {
					for _, e := range merr.Errors {
						log.WithContext(cmd.Context()).Error(e)
					}
					return fmt.Errorf("%d of the checks over %d journalists failed", len(merr.Errors), report.Journalists)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "checked %d keys of %d journalists in %s, root %s\n",
				len(report.Checked), report.Journalists, keys.Dir(), pki.Fingerprint(report.Root))
			return nil
		},
	}
)

func init() {
	verifyCmd.Flags().BoolVar(&verifyProbeFetching, "probe-fetching", false, "also seal a message to every fetching key and open it with the stored secret")
	verifyCmd.Flags().IntVar(&verifyMaxDepth, "max-depth", pki.DefaultMaxChainDepth, "maximum length of a chain walk")
}
