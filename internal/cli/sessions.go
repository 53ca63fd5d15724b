// Package cli — sessions.go implements the "dockgrid sessions" command,
// which lists the session containers currently present on the daemon.
// Because session metadata lives entirely on Docker labels, the listing
// is reconstructed from the daemon with no local state.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mmr-tortoise/dockgrid/internal/config"
	"github.com/mmr-tortoise/dockgrid/internal/docker"
	"github.com/mmr-tortoise/dockgrid/internal/node"
)

// NewSessionsCommand creates the "sessions" cobra command.
func NewSessionsCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List session containers managed by dockgrid",
		Long: `List all containers carrying the dockgrid management label, including
stopped ones. Useful for finding leftovers after a crashed node.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("docker-url", "", "Docker daemon endpoint URL (highest priority)")
	flags.String("docker-host", "", "Docker daemon host, scheme-normalized to http")

	_ = v.BindPFlag(config.KeyURL, flags.Lookup("docker-url"))
	_ = v.BindPFlag(config.KeyHost, flags.Lookup("docker-host"))

	return cmd
}

// runSessions lists the managed containers grouped by session ID.
func runSessions(cmd *cobra.Command, v *viper.Viper) error {
	cfg := config.New(v)

	endpoint, err := node.ResolveEndpoint(cfg)
	if err != nil {
		return err
	}

	client, err := docker.NewClient(endpoint)
	if err != nil {
		return err
	}

	containers, err := client.ListSessionContainers(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(containers)
	}

	if len(containers) == 0 {
		fmt.Println("No session containers found.")
		return nil
	}

	for _, ct := range containers {
		fmt.Printf("%s  %-10s  %-8s  session=%s  %s\n",
			ct.ContainerID[:min(12, len(ct.ContainerID))],
			ct.Status,
			ct.Labels[docker.LabelRole],
			ct.Labels[docker.LabelSessionID],
			ct.Image,
		)
	}

	return nil
}
