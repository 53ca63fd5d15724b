// Package cli — check.go implements the "dockgrid check" command, a
// diagnostic that resolves the daemon endpoint and reports whether the
// daemon is reachable and of a supported version.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mmr-tortoise/dockgrid/internal/config"
	"github.com/mmr-tortoise/dockgrid/internal/docker"
	"github.com/mmr-tortoise/dockgrid/internal/model"
	"github.com/mmr-tortoise/dockgrid/internal/node"
)

// NewCheckCommand creates the "check" cobra command.
func NewCheckCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check Docker daemon connectivity for this node",
		Long: `Resolve the Docker daemon endpoint from the configuration and probe it
once, reporting whether container-backed sessions could be offered.

The exit code is 0 when the daemon is reachable and supported, and 3
(docker not running) otherwise, so the command can gate scripts.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("docker-url", "", "Docker daemon endpoint URL (highest priority)")
	flags.String("docker-host", "", "Docker daemon host, scheme-normalized to http")

	_ = v.BindPFlag(config.KeyURL, flags.Lookup("docker-url"))
	_ = v.BindPFlag(config.KeyHost, flags.Lookup("docker-host"))

	return cmd
}

// runCheck resolves the endpoint, opens a driver and probes the daemon.
func runCheck(cmd *cobra.Command, v *viper.Viper) error {
	cfg := config.New(v)

	endpoint, err := node.ResolveEndpoint(cfg)
	if err != nil {
		return err
	}

	driver, err := docker.NewClient(endpoint)
	if err != nil {
		return err
	}

	supported := driver.IsSupported(cmd.Context())

	if jsonOutput {
		payload := map[string]any{
			"endpoint":  endpoint.String(),
			"supported": supported,
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		fmt.Fprintln(os.Stdout, string(data))
	} else if supported {
		fmt.Printf("Docker daemon at %s is reachable and supported.\n", endpoint)
	} else {
		fmt.Printf("Docker daemon at %s is not reachable or not supported.\n", endpoint)
	}

	if !supported {
		return model.NewCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("docker daemon at %s is unavailable", endpoint),
		)
	}

	return nil
}
