// Package cli implements the dockyard command-line interface using
// Cobra. It talks to a remote dockyard agent for container lifecycle,
// exec, logs and stats.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/poridhioss/dockyard/internal/client"
	"github.com/poridhioss/dockyard/internal/config"
	"github.com/poridhioss/dockyard/internal/log"
)

var (
	verbose  bool
	flagHost string
	flagPort int
)

var rootCmd = &cobra.Command{
	Use:   "dockyard",
	Short: "Dockyard - control containers on a remote Docker host",
	Long: `Dockyard talks to a dockyard agent running next to a remote Docker
daemon: launch and remove containers, run commands in them, tail logs
and watch resource usage.

The agent address comes from ~/.dockyard/config.yaml, overridable with
--host/--port or DOCKYARD_HOST/DOCKYARD_PORT. Authentication uses the
token from 'dockyard config set-token' or DOCKYARD_AUTH_TOKEN.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		return log.Init(log.Options{Level: level})
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&flagHost, "host", "H", "", "agent host (env: DOCKYARD_HOST)")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 0, "agent port (env: DOCKYARD_PORT)")
}

// loadConfig resolves the CLI config with flag overrides applied.
func loadConfig() (config.CLI, error) {
	cfg, err := config.LoadCLI("")
	if err != nil {
		return config.CLI{}, err
	}
	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	return cfg, nil
}

// newClient builds the agent client from configuration.
func newClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Addr(), cfg.Token(), cfg.RequestTimeout()), nil
}
