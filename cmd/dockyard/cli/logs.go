package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/poridhioss/dockyard/internal/agent"
)

var (
	logsFollow     bool
	logsTail       uint
	logsSince      string
	logsTimestamps bool
	logsStdout     bool
	logsStderr     bool
)

var logsCmd = &cobra.Command{
	Use:   "logs CONTAINER",
	Short: "Fetch a container's logs",
	Long: `Stream a container's logs from the agent. --since accepts a relative
duration ("10s", "30m", "1h", "7d") or an RFC 3339 timestamp. With
neither --stdout nor --stderr, both streams are shown.`,
	Args: cobra.ExactArgs(1),
	RunE: logsRun,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep streaming new output")
	logsCmd.Flags().UintVar(&logsTail, "tail", 0, "lines from the end (0 = all)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "only logs after this time")
	logsCmd.Flags().BoolVarP(&logsTimestamps, "timestamps", "t", false, "prefix each line with its time")
	logsCmd.Flags().BoolVar(&logsStdout, "stdout", false, "show only stdout")
	logsCmd.Flags().BoolVar(&logsStderr, "stderr", false, "show only stderr")
	rootCmd.AddCommand(logsCmd)
}

func logsRun(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	filter := agent.LogsRequest{
		Follow:     logsFollow,
		Tail:       logsTail,
		Since:      logsSince,
		Timestamps: logsTimestamps,
		Stdout:     logsStdout,
		Stderr:     logsStderr,
	}
	err = c.Logs(ctx, args[0], filter, func(msg agent.LogMessage) error {
		switch {
		case msg.Log != nil:
			w := os.Stdout
			if msg.Log.Stream == "stderr" {
				w = os.Stderr
			}
			_, err := w.Write(msg.Log.Data)
			return err
		case msg.Status != nil && msg.Status.Finished && !msg.Status.Success:
			return fmt.Errorf("%s", msg.Status.Message)
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return nil // interrupted follow is a normal exit
	}
	return err
}
