package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	stopForce   bool
	stopTimeout int
)

var stopCmd = &cobra.Command{
	Use:   "stop CONTAINER...",
	Short: "Stop running containers",
	Long: `Stop one or more containers by name or ID. The agent sends SIGTERM
and waits up to --timeout seconds before killing; --force kills
immediately.`,
	Args: cobra.MinimumNArgs(1),
	RunE: stopRun,
}

func init() {
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "kill instead of graceful stop")
	stopCmd.Flags().IntVarP(&stopTimeout, "timeout", "t", 10, "seconds to wait before killing")
	rootCmd.AddCommand(stopCmd)
}

func stopRun(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()
	for _, name := range args {
		if err := c.Stop(ctx, name, stopForce, stopTimeout); err != nil {
			return fmt.Errorf("stopping %s: %w", name, err)
		}
		fmt.Println(name)
	}
	return nil
}
