package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCLIError_Error verifies message formatting with and without an
// underlying cause.
func TestCLIError_Error(t *testing.T) {
	plain := NewCLIError(ExitGeneralError, "something failed")
	assert.Equal(t, "something failed", plain.Error())

	wrapped := WrapCLIError(ExitDockerNotRunning, "daemon unreachable", errors.New("dial refused"))
	assert.Equal(t, "daemon unreachable: dial refused", wrapped.Error())
}

// TestCLIError_Unwrap verifies errors.Is/As work through the wrapper.
func TestCLIError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := WrapCLIError(ExitImageError, "pull failed", cause)

	assert.ErrorIs(t, wrapped, cause)

	var cliErr *CLIError
	require.True(t, errors.As(wrapped, &cliErr))
	assert.Equal(t, ExitImageError, cliErr.Code)
}

// TestIsConfigError verifies config-error classification, including
// through further %w wrapping.
func TestIsConfigError(t *testing.T) {
	cfgErr := NewConfigError("odd configs list")
	assert.True(t, IsConfigError(cfgErr))
	assert.True(t, IsConfigError(fmt.Errorf("bootstrap: %w", cfgErr)))

	assert.False(t, IsConfigError(NewCLIError(ExitDockerNotRunning, "down")))
	assert.False(t, IsConfigError(errors.New("plain")))
	assert.False(t, IsConfigError(nil))
}

// TestSessionStatus verifies the status value object.
func TestSessionStatus(t *testing.T) {
	assert.True(t, StatusRunning.IsValid())
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusStopped.IsValid())
	assert.False(t, SessionStatus("exploded").IsValid())

	assert.Equal(t, "running", StatusRunning.String())
}
