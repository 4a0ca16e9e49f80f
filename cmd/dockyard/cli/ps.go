package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/poridhioss/dockyard/internal/ui"
)

var psAll bool

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List containers on the agent's host",
	Args:  cobra.NoArgs,
	RunE:  psRun,
}

func init() {
	psCmd.Flags().BoolVarP(&psAll, "all", "a", false, "include stopped containers")
	rootCmd.AddCommand(psCmd)
}

func psRun(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	containers, err := c.List(context.Background(), psAll)
	if err != nil {
		return err
	}

	if len(containers) == 0 {
		fmt.Println("No containers found")
		return nil
	}

	rows := make([][]string, len(containers))
	for i, ct := range containers {
		rows[i] = []string{
			ct.ID,
			ct.Image,
			ui.Truncate(ct.Command, 30),
			ui.FormatAge(time.Unix(ct.Created, 0)),
			ct.Status,
			ct.Ports,
			ct.Name,
		}
	}
	ui.Table(os.Stdout, []string{"CONTAINER ID", "IMAGE", "COMMAND", "CREATED", "STATUS", "PORTS", "NAMES"}, rows)
	return nil
}
