package model

import (
	"errors"
	"fmt"
)

// SessionStatus represents the lifecycle state of a browser session
// container launched by a session factory.
type SessionStatus string

const (
	// StatusPending indicates the session container was created but has
	// not been started yet.
	StatusPending SessionStatus = "pending"

	// StatusRunning indicates the session container is up and its
	// WebDriver endpoint should be reachable.
	StatusRunning SessionStatus = "running"

	// StatusStopped indicates the session container has been stopped
	// and its resources released.
	StatusStopped SessionStatus = "stopped"
)

// String returns the string representation of SessionStatus.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid checks whether the SessionStatus value is one of the
// predefined valid states.
func (s SessionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusStopped:
		return true
	default:
		return false
	}
}

// ContainerInfo is a minimal view of a Docker container as returned by
// the Docker API, decoupled from the SDK types. It is used when listing
// session containers managed by dockgrid.
type ContainerInfo struct {
	// ContainerID is the Docker container ID.
	ContainerID string `json:"containerId"`

	// ContainerName is the container name without the leading "/" that
	// the Docker API prepends.
	ContainerName string `json:"containerName"`

	// Image is the image reference the container was created from.
	Image string `json:"image"`

	// Status is the short Docker state string ("running", "exited", ...).
	Status string `json:"status"`

	// Labels holds all Docker labels on the container, including the
	// dockgrid management labels.
	Labels map[string]string `json:"labels"`
}

// ExitCode defines the CLI exit codes. These codes allow scripts and CI
// systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the docker section of the configuration
	// is malformed: a bad endpoint URL, an odd-length configs list, or an
	// unparsable stereotype payload.
	ExitConfigError ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitImageError indicates a required container image could not be
	// resolved or pulled.
	ExitImageError ExitCode = 4

	// ExitPortAllocationFailed indicates no free host port could be found
	// for publishing a session container.
	ExitPortAllocationFailed ExitCode = 5
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// NewConfigError creates a configuration error. Configuration errors are
// fatal to the "offer container sessions" bootstrap step and are never
// retried.
func NewConfigError(message string) *CLIError {
	return &CLIError{Code: ExitConfigError, Message: message}
}

// WrapConfigError creates a configuration error wrapping an underlying
// cause, typically a URL or JSON parse failure.
func WrapConfigError(message string, err error) *CLIError {
	return &CLIError{Code: ExitConfigError, Message: message, Err: err}
}

// IsConfigError reports whether err (or anything it wraps) is a CLIError
// carrying ExitConfigError.
func IsConfigError(err error) bool {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code == ExitConfigError
	}
	return false
}
