package main

import (
	"os"

	"github.com/securedrop/trustchain/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitSetupFailed)
	}
}
