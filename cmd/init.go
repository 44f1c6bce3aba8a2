package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/securedrop/trustchain/bootstrap"
	"github.com/securedrop/trustchain/keystore"
	"github.com/securedrop/trustchain/pki"
)

var (
	initJournalists int
	initSelfCheck   bool

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "create a fresh root, intermediate and journalist keys",
		Long: `Creates a new root key, an intermediate key signed by it and journalist signing
and fetching keys signed by the intermediate. Existing records in the key directory are
overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := prepare(cmd)
			if err != nil {
				return err
			}

			keys, err := keystore.NewFileStore(config.Keys.Dir)
			if err != nil {
				return fmt.Errorf("open key directory: %w", err)
			}
			log.WithContext(cmd.Context()).Infof("Storing keys in folder %s", keys.Dir())

			_, err = bootstrap.Run(cmd.Context(), keys, bootstrap.Options{
				Journalists: initJournalists,
				Generator:   pki.NewGenerator(pki.WithSelfCheck(initSelfCheck)),
			})
			return err
		},
	}
)

func init() {
	initCmd.Flags().IntVar(&initJournalists, "journalists", bootstrap.DefaultJournalists, "number of journalist identities to create")
	initCmd.Flags().BoolVar(&initSelfCheck, "self-check", true, "verify every signature right after producing it")
}
