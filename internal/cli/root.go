// Package cli implements the cobra-based CLI commands for dockgrid.
//
// The root command carries the global flags and the shared viper instance;
// the node and check subcommands live in their own files. Docker-section
// flags are bound to viper keys so the same settings can come from a
// config file, environment variables, or the command line.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mmr-tortoise/dockgrid/internal/model"
)

// Global flag variables bound to cobra persistent flags on the root
// command, making them available to every subcommand.
var (
	// cfgFile is the path of an explicit config file (--config).
	cfgFile string

	// jsonOutput switches command output to JSON for machine consumption.
	jsonOutput bool

	// verbose enables debug-level logging on stderr.
	verbose bool
)

// Version, Commit and Date are injected from the main package, which sets
// them from ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command together
// with the viper instance shared by all subcommands.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "dockgrid",
		Short: "Docker-backed browser session node",
		Long: `dockgrid turns a set of container images into a pool of browser-automation
session factories. It maps each configured image to the capability set it
serves, warms every image on the Docker daemon, and builds the routing
table used to launch sessions inside containers.`,

		// Errors are formatted by Execute; keep cobra quiet.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./dockgrid.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewNodeCommand(v))
	rootCmd.AddCommand(NewCheckCommand(v))
	rootCmd.AddCommand(NewSessionsCommand(v))

	return rootCmd
}

// loadConfig wires the viper instance: an explicit --config file is
// required to exist, while the default dockgrid.yaml in the working
// directory is optional. Environment variables override file values, e.g.
// DOCKGRID_DOCKER_HOST for docker.host.
func loadConfig(v *viper.Viper) error {
	v.SetEnvPrefix("dockgrid")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return model.WrapConfigError(
				fmt.Sprintf("unable to read config file %s", cfgFile), err)
		}
		return nil
	}

	v.SetConfigName("dockgrid")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return model.WrapConfigError("unable to read dockgrid.yaml", err)
	}
	return nil
}

// newLogger builds the logrus logger shared by the subcommands. Logs go
// to stderr so stdout stays reserved for command output.
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// Execute runs the root command and translates errors into OS exit codes.
// CLIError values carry their own exit code; anything else exits with the
// general error code.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitGeneralError))
	}
}

// printError writes an error to stderr in the format selected by --json.
func printError(message string, underlying error) {
	if jsonOutput {
		payload := map[string]any{"error": map[string]any{"message": message}}
		if underlying != nil {
			payload["error"].(map[string]any)["detail"] = underlying.Error()
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	if underlying != nil {
		fmt.Fprintf(os.Stderr, "  %v\n", underlying)
	}
}
