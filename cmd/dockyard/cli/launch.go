package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poridhioss/dockyard/internal/agent"
	"github.com/poridhioss/dockyard/internal/config"
)

var (
	launchFile    string
	launchName    string
	launchEnv     []string
	launchPorts   []string
	launchVolumes []string
)

var launchCmd = &cobra.Command{
	Use:   "launch [image] [-- command...]",
	Short: "Create and start a container on the agent's host",
	Long: `Launch a container from an image, pulling it first if the agent's
host does not have it. A YAML manifest (-f) can carry the image, name,
command, environment, ports and volumes; flags and arguments override
manifest values.`,
	Args: cobra.ArbitraryArgs,
	RunE: launchRun,
}

func init() {
	launchCmd.Flags().StringVarP(&launchFile, "file", "f", "", "launch manifest (YAML)")
	launchCmd.Flags().StringVar(&launchName, "name", "", "container name")
	launchCmd.Flags().StringArrayVarP(&launchEnv, "env", "e", nil, "environment variable KEY=VALUE")
	launchCmd.Flags().StringArrayVarP(&launchPorts, "port", "p", nil, "port mapping host:container[/proto]")
	launchCmd.Flags().StringArrayVarP(&launchVolumes, "volume", "V", nil, "bind mount host:container[:ro]")
	rootCmd.AddCommand(launchCmd)
}

func launchRun(cmd *cobra.Command, args []string) error {
	var req agent.LaunchRequest

	if launchFile != "" {
		manifest, err := config.LoadLaunch(launchFile)
		if err != nil {
			return err
		}
		req = agent.LaunchRequest{
			Image:   manifest.Image,
			Name:    manifest.Name,
			Command: manifest.Command,
			Env:     manifest.EnvList(),
			Ports:   manifest.Ports,
			Volumes: manifest.Volumes,
		}
	}

	if len(args) > 0 {
		req.Image = args[0]
		if len(args) > 1 {
			req.Command = args[1:]
		}
	}
	if req.Image == "" {
		return fmt.Errorf("an image is required, either as an argument or in the manifest")
	}
	if launchName != "" {
		req.Name = launchName
	}
	req.Env = append(req.Env, launchEnv...)
	req.Ports = append(req.Ports, launchPorts...)
	req.Volumes = append(req.Volumes, launchVolumes...)

	c, err := newClient()
	if err != nil {
		return err
	}
	resp, err := c.Launch(context.Background(), req)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", resp.Name, resp.ID)
	return nil
}
