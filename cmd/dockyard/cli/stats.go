package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/poridhioss/dockyard/internal/agent"
	"github.com/poridhioss/dockyard/internal/engine"
	"github.com/poridhioss/dockyard/internal/ui"
)

var statsNoStream bool

var statsCmd = &cobra.Command{
	Use:   "stats CONTAINER",
	Short: "Show a container's live resource usage",
	Long: `Stream CPU, memory, network, block I/O and PID usage for a container,
refreshed every second. --no-stream prints a single reading.`,
	Args: cobra.ExactArgs(1),
	RunE: statsRun,
}

func init() {
	statsCmd.Flags().BoolVar(&statsNoStream, "no-stream", false, "print one sample and exit")
	rootCmd.AddCommand(statsCmd)
}

func statsRun(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stream := !statsNoStream
	err = c.Stats(ctx, args[0], stream, func(msg agent.StatsMessage) error {
		switch {
		case msg.Stats != nil:
			if stream {
				// Redraw in place.
				fmt.Print("\033[2J\033[H")
			}
			printSample(*msg.Stats)
		case msg.Status != nil && msg.Status.Finished && !msg.Status.Success:
			return fmt.Errorf("%s", msg.Status.Message)
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return nil // interrupted stream is a normal exit
	}
	return err
}

func printSample(s engine.StatsSample) {
	ui.Table(os.Stdout,
		[]string{"NAME", "CPU %", "MEM USAGE / LIMIT", "MEM %", "NET I/O", "BLOCK I/O", "PIDS"},
		[][]string{{
			s.Name,
			fmt.Sprintf("%.2f%%", s.CPUPercent),
			fmt.Sprintf("%s / %s", ui.FormatBytes(s.MemoryUsage), ui.FormatBytes(s.MemoryLimit)),
			fmt.Sprintf("%.2f%%", s.MemoryPercent),
			fmt.Sprintf("%s / %s", ui.FormatBytes(s.NetworkRx), ui.FormatBytes(s.NetworkTx)),
			fmt.Sprintf("%s / %s", ui.FormatBytes(s.BlockRead), ui.FormatBytes(s.BlockWrite)),
			fmt.Sprintf("%d", s.PIDs),
		}})
}
