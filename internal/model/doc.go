// Package model defines the domain types and error values shared across
// the dockgrid CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities are transient: the session routing table and its supporting
// data are rebuilt from configuration and Docker daemon state on every
// bootstrap run, and nothing survives between invocations.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
