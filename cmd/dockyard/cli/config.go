package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poridhioss/dockyard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token TOKEN",
	Short: "Store the agent's bearer token",
	Long: `Write the bearer token to ~/.dockyard/config.yaml with owner-only
permissions. DOCKYARD_AUTH_TOKEN, when set, takes priority over the
stored token.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadCLI("")
		if err != nil {
			return err
		}
		if err := cfg.SaveToken(args[0]); err != nil {
			return err
		}
		fmt.Println("token saved")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("agent:   %s\n", cfg.Addr())
		fmt.Printf("timeout: %s\n", cfg.RequestTimeout())
		if cfg.Token() != "" {
			fmt.Println("token:   (set)")
		} else {
			fmt.Println("token:   (none)")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
