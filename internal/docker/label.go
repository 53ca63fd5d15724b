package docker

import (
	"time"
)

// Label key constants define the Docker labels applied to every container
// dockgrid launches. Labels are the only session metadata store; a session
// can be fully attributed from container inspection alone.
//
// All keys share the "dockgrid." prefix to avoid collisions with labels
// set by other tools.
const (
	// LabelPrefix is the common prefix for all dockgrid labels.
	LabelPrefix = "dockgrid."

	// LabelManagedBy identifies containers managed by dockgrid. This is
	// the primary label used for filtering and discovery.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelSessionID stores the session identifier shared by a session
	// container and its video sidecar.
	LabelSessionID = LabelPrefix + "session-id"

	// LabelRole distinguishes the browser container from its recording
	// sidecar. Value: "session" or "video".
	LabelRole = LabelPrefix + "role"

	// LabelStereotype stores the canonical capability set the container
	// was launched for.
	LabelStereotype = LabelPrefix + "stereotype"

	// LabelCreatedAt stores the RFC3339 launch timestamp.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value for the LabelManagedBy label.
const ManagedByValue = "dockgrid"

// Container roles used with LabelRole.
const (
	// RoleSession marks the browser session container.
	RoleSession = "session"

	// RoleVideo marks the recording sidecar container.
	RoleVideo = "video"
)

// SessionLabels builds the label map for a container belonging to a
// session. The same session ID is applied to the browser container and its
// sidecar so the pair can be found together.
func SessionLabels(sessionID, role, stereotype string) map[string]string {
	return map[string]string{
		LabelManagedBy:  ManagedByValue,
		LabelSessionID:  sessionID,
		LabelRole:       role,
		LabelStereotype: stereotype,
		// UTC keeps timestamps comparable regardless of host timezone.
		LabelCreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
