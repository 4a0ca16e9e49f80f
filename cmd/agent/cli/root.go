// Package cli implements the dockyard agent daemon's command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/poridhioss/dockyard/internal/agent"
	"github.com/poridhioss/dockyard/internal/config"
	"github.com/poridhioss/dockyard/internal/engine"
	"github.com/poridhioss/dockyard/internal/log"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "dockyard-agent",
	Short: "Dockyard agent - remote container control next to the Docker socket",
	Long: `The dockyard agent runs next to a Docker daemon and exposes container
lifecycle, exec, log and stats operations to remote dockyard CLIs.

Configuration is read from /etc/dockyard/config.yaml (override with
--config or DOCKYARD_CONFIG). The bearer secret, if any, comes from
DOCKYARD_AUTH_TOKEN.`,
	SilenceUsage: true,
	RunE:         serveRun,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func serveRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadAgent(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := log.Init(log.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return err
	}
	defer log.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, err := engine.NewDocker(ctx, cfg.Docker.Socket, cfg.DockerTimeout())
	if err != nil {
		return err
	}
	defer eng.Close()

	token := cfg.AuthToken()
	if token == "" {
		log.Warn("authentication disabled; set DOCKYARD_AUTH_TOKEN to require a bearer token")
	}

	srv := agent.NewServer(cfg.Addr(), eng, log.With(), token, cfg.Server.MaxWorkers)
	if err := srv.Start(); err != nil {
		return err
	}
	log.Info("agent started", "addr", srv.Addr(), "workers", cfg.Server.MaxWorkers, "docker", cfg.Docker.Socket)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", "signal", s.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
