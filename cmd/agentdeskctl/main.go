package main

import (
	"os"

	"github.com/dennisdiepolder/monti/agentdesk/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
