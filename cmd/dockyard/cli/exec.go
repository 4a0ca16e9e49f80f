package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/poridhioss/dockyard/internal/agent"
	"github.com/poridhioss/dockyard/internal/client"
	"github.com/poridhioss/dockyard/internal/term"
	"github.com/poridhioss/dockyard/internal/ui"
)

var (
	execInteractive bool
	execUser        string
	execWorkdir     string
	execEnv         []string
	execDetachKeys  string
)

var execCmd = &cobra.Command{
	Use:   "exec CONTAINER COMMAND [ARG...]",
	Short: "Run a command in a running container",
	Long: `Run a command in a container on the agent's host. The local exit code
is the remote command's exit code.

With -i a pseudo-terminal is allocated, the local terminal switches to
raw mode and stdin is streamed to the remote process. Detach with
Ctrl-P Ctrl-Q (configurable via --detach-keys) leaving the command
running.`,
	Args: cobra.MinimumNArgs(2),
	RunE: execRun,
}

func init() {
	execCmd.Flags().BoolVarP(&execInteractive, "interactive", "i", false, "allocate a TTY and stream stdin")
	execCmd.Flags().StringVarP(&execUser, "user", "u", "", "user to run as")
	execCmd.Flags().StringVarP(&execWorkdir, "workdir", "w", "", "working directory inside the container")
	execCmd.Flags().StringArrayVarP(&execEnv, "env", "e", nil, "environment variable KEY=VALUE")
	execCmd.Flags().StringVar(&execDetachKeys, "detach-keys", "", "detach key sequence (default ctrl-p,ctrl-q)")
	rootCmd.AddCommand(execCmd)
}

func execRun(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	env := make(map[string]string, len(execEnv))
	for _, kv := range execEnv {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid environment variable %q, want KEY=VALUE", kv)
		}
		env[k] = v
	}

	start := agent.StartRequest{
		Container:   args[0],
		Command:     args[1:],
		Interactive: execInteractive,
		User:        execUser,
		WorkingDir:  execWorkdir,
		Environment: env,
	}

	// Terminal state must be restored before os.Exit, so the exec body
	// runs in its own function and the exit happens out here.
	code, err := runExec(c, start)
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

func runExec(c *client.Client, start agent.StartRequest) (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var stdin io.Reader
	var detached bool
	if start.Interactive {
		keys, err := term.ParseDetachKeys(execDetachKeys)
		if err != nil {
			return 0, err
		}
		execCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		ctx = execCtx

		if term.IsTerminal(os.Stdin) {
			restore, err := term.MakeRaw(os.Stdin)
			if err != nil {
				return 0, fmt.Errorf("entering raw mode: %w", err)
			}
			defer func() { _ = restore() }()
		}
		stdin = &detachReader{
			proxy:    term.NewDetachProxy(os.Stdin, keys),
			cancel:   cancel,
			detached: &detached,
		}
	}

	result, err := c.Exec(ctx, start, stdin, os.Stdout, os.Stderr)
	switch {
	case errors.Is(err, client.ErrInterrupted) && detached:
		fmt.Fprintln(os.Stderr, "\ndetached")
		return 0, nil
	case errors.Is(err, client.ErrInterrupted):
		return 130, nil
	case err != nil:
		return 0, err
	}

	if !result.Success {
		ui.Error(result.Message)
		return 1, nil
	}
	return result.ExitCode, nil
}

// detachReader turns the detach sequence into an exec cancellation,
// remembering that the stream ended by detach rather than interrupt.
type detachReader struct {
	proxy    *term.DetachProxy
	cancel   context.CancelFunc
	detached *bool
}

func (d *detachReader) Read(p []byte) (int, error) {
	n, err := d.proxy.Read(p)
	if errors.Is(err, term.ErrDetached) {
		*d.detached = true
		d.cancel()
		return n, io.EOF
	}
	return n, err
}
