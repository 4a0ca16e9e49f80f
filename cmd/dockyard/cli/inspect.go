package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect CONTAINER",
	Short: "Show a container's full engine configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  inspectRun,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspectRun(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	raw, err := c.Inspect(context.Background(), args[0])
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		// Not valid JSON? Show it as received.
		fmt.Println(string(raw))
		return nil
	}
	pretty.WriteByte('\n')
	_, err = pretty.WriteTo(os.Stdout)
	return err
}
