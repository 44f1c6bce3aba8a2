package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/securedrop/trustchain/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints trustchain version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.TrustchainVersion())
		if !version.IsRelease() {
			fmt.Fprintln(cmd.ErrOrStderr(), "built from an untagged source tree")
		}
	},
}
