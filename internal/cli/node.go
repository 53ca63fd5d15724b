// Package cli — node.go implements the "dockgrid node" command.
//
// The node command runs the bootstrap step: it parses the docker section
// of the configuration, probes the daemon, warms every referenced image
// and builds the capability-to-factory routing table. The table summary is
// printed to stdout; the table itself is what a registration collaborator
// would advertise to a hub.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mmr-tortoise/dockgrid/internal/config"
	"github.com/mmr-tortoise/dockgrid/internal/node"
)

// NewNodeCommand creates the "node" cobra command. The docker-section
// flags are bound to viper keys, so flags, config file and environment
// variables all feed the same configuration.
func NewNodeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Build the session-factory routing table for this node",
		Long: `Build the routing table mapping capability sets to container-backed
session factories.

Every image referenced by the configuration is pulled before any factory
is constructed; if one image fails to resolve, the whole bootstrap fails
and no factories are produced. Without any configured images, or with the
Docker daemon unreachable, the node starts with container sessions
disabled and an empty table.

Examples:
  dockgrid node --docker-config selenium/standalone-firefox:latest \
                --docker-config '{"browserName": "firefox"}'
  dockgrid node --docker-configs-file images.yaml --json
  dockgrid node --video-image selenium/video:latest --assets-path /opt/assets ...`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.String("docker-url", "", "Docker daemon endpoint URL (highest priority)")
	flags.String("docker-host", "", "Docker daemon host, scheme-normalized to http")
	flags.StringArray("docker-config", nil,
		"Image name or stereotype JSON; pass repeatedly in alternating pairs")
	flags.String("docker-configs-file", "", "YAML file with image/stereotype records")
	flags.String("video-image", "", "Recording sidecar image (requires --assets-path)")
	flags.String("assets-path", "", "Host directory for recorded session artifacts")

	// Viper bindings; ignoring the error is safe because the flag names
	// are compile-time constants that exist on the flag set.
	_ = v.BindPFlag(config.KeyURL, flags.Lookup("docker-url"))
	_ = v.BindPFlag(config.KeyHost, flags.Lookup("docker-host"))
	_ = v.BindPFlag(config.KeyConfigs, flags.Lookup("docker-config"))
	_ = v.BindPFlag(config.KeyConfigsFile, flags.Lookup("docker-configs-file"))
	_ = v.BindPFlag(config.KeyVideoImage, flags.Lookup("video-image"))
	_ = v.BindPFlag(config.KeyAssetsPath, flags.Lookup("assets-path"))

	return cmd
}

// routeSummary is the JSON shape of the table printed with --json.
type routeSummary struct {
	Stereotype map[string]any `json:"stereotype"`
	Image      string         `json:"image"`
	Factories  int            `json:"factories"`
	Video      bool           `json:"video"`
}

// runNode executes the bootstrap and prints the resulting table.
func runNode(cmd *cobra.Command, v *viper.Viper) error {
	log := newLogger()
	cfg := config.New(v)

	options := node.NewOptions(cfg, log)
	route, err := options.SessionFactories(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printRouteJSON(route)
	}

	if route.Empty() {
		fmt.Println("Container-backed sessions are disabled (no images configured or daemon unreachable).")
		return nil
	}

	fmt.Printf("Routing table with %d capability group(s):\n", route.Len())
	for _, entry := range route.Entries() {
		first := entry.Factories[0]
		marker := ""
		if first.RecordsVideo() {
			marker = " [video]"
		}
		fmt.Printf("  %s -> %s x%d%s\n",
			entry.Stereotype.Canonical(), first.Image().Name, len(entry.Factories), marker)
	}

	return nil
}

// printRouteJSON writes the table summary as a JSON array to stdout.
func printRouteJSON(route *node.Route) error {
	summaries := make([]routeSummary, 0, route.Len())
	for _, entry := range route.Entries() {
		first := entry.Factories[0]
		summaries = append(summaries, routeSummary{
			Stereotype: entry.Stereotype,
			Image:      first.Image().Name,
			Factories:  len(entry.Factories),
			Video:      first.RecordsVideo(),
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summaries)
}
