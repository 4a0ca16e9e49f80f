package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	rmForce   bool
	rmVolumes bool
)

var rmCmd = &cobra.Command{
	Use:   "rm CONTAINER...",
	Short: "Remove containers",
	Long: `Remove one or more containers by name or ID. Running containers are
refused unless --force is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: rmRun,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "remove even if running")
	rmCmd.Flags().BoolVar(&rmVolumes, "volumes", false, "also remove anonymous volumes")
	rootCmd.AddCommand(rmCmd)
}

func rmRun(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	ctx := context.Background()
	for _, name := range args {
		removed, err := c.Remove(ctx, name, rmForce, rmVolumes)
		if err != nil {
			return fmt.Errorf("removing %s: %w", name, err)
		}
		fmt.Println(removed)
	}
	return nil
}
