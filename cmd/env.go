package cmd

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// setFlagsFromEnvVars fills every flag of cmd, inherited ones included, that was not given on
// the command line from the matching TRUSTCHAIN_ environment variable
func setFlagsFromEnvVars(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}

		envVar := flagNameToEnvVar(f.Name, envPrefix)
		value, present := os.LookupEnv(envVar)
		if !present {
			return
		}

		if err := flags.Set(f.Name, value); err != nil {
			log.Warnf("unable to configure flag %s using variable %s, err: %v", f.Name, envVar, err)
		}
	})
}

// flagNameToEnvVar converts flag name to environment var name adding a prefix,
// replacing dashes and making all uppercase (e.g. keys-dir is converted to TRUSTCHAIN_KEYS_DIR)
func flagNameToEnvVar(cmdFlag string, prefix string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(cmdFlag, "-", "_"))
}
