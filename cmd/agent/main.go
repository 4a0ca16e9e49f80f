package main

import (
	"os"

	"github.com/poridhioss/dockyard/cmd/agent/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
