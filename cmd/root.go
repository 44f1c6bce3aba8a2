package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/securedrop/trustchain/util"
	"github.com/securedrop/trustchain/version"
)

const (
	// ExitSetupFailed defines exit code
	ExitSetupFailed = 1

	envPrefix = "TRUSTCHAIN_"
)

var (
	configPath string
	keysDir    string
	logLevel   string
	logFile    string
	logFormat  string

	rootCmd = &cobra.Command{
		Use:   "trustchain",
		Short: "Root, intermediate and journalist key hierarchy",
		Long: `trustchain creates a three level Ed25519 key hierarchy, audits it and runs
an HTTP endpoint that accepts journalist public keys signed by the intermediate.`,
		SilenceUsage: true,
		Version:      version.TrustchainVersion(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setFlagsFromEnvVars(cmd)
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to an optional YAML configuration file. Flags given on the command line take precedence over it")
	rootCmd.PersistentFlags().StringVar(&keysDir, "keys-dir", defaultKeysDir, "directory holding the key records")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "sets log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", util.LogConsole, "sets log path. If console is specified the log will be output to stderr")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "sets log format (text, json). Anything else selects the default formatter")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)
}

// prepare loads the configuration for cmd and initializes logging
func prepare(cmd *cobra.Command) (*Config, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyFlags(cmd.Flags())

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := util.InitLogWithFormat(config.Server.LogLevel, config.Server.LogFile, config.Server.LogFormat); err != nil {
		return nil, fmt.Errorf("failed to initialize log: %w", err)
	}

	return config, nil
}

// exitSignal is closed on SIGINT or SIGTERM
func exitSignal() <-chan struct{} {
	done := make(chan struct{})
	osSigs := make(chan os.Signal, 1)
	signal.Notify(osSigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-osSigs
		fmt.Println("\r- Ctrl+C pressed in Terminal")
		close(done)
	}()
	return done
}
