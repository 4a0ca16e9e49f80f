package main

import (
	"os"

	"github.com/poridhioss/dockyard/cmd/dockyard/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
