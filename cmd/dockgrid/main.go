// Package main is the entry point for the dockgrid CLI.
//
// dockgrid turns a set of container images into a pool of browser
// session factories, advertised by capability set. All functionality
// lives in the internal/cli package; this file only injects build-time
// version information and hands control to cobra.
package main

import (
	"github.com/mmr-tortoise/dockgrid/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
