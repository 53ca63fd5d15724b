package node

import (
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/mmr-tortoise/dockgrid/internal/capabilities"
	"github.com/mmr-tortoise/dockgrid/internal/docker"
	"github.com/mmr-tortoise/dockgrid/internal/port"
)

// webDriverPort is the port the WebDriver server listens on inside every
// browser image dockgrid launches.
const webDriverPort = 4444

// browserShmSize is the /dev/shm size for browser containers. Chromium
// and Firefox crash under Docker's 64MB default.
const browserShmSize int64 = 2 * 1024 * 1024 * 1024

// videoMountPoint is where the recording sidecar expects the artifacts
// directory to be mounted.
const videoMountPoint = "/videos"

// SessionFactory produces browser sessions from one backing image for one
// stereotype. Factories are constructed only after their image has been
// confirmed available on the daemon.
//
// Replicas of a factory are interchangeable: each holds the same driver
// handle, endpoint, image and stereotype, and nothing distinguishes them
// beyond their position in the routing table.
type SessionFactory struct {
	log        *logrus.Logger
	driver     Driver
	endpoint   *url.URL
	image      *docker.Image
	stereotype capabilities.Set
	ports      *port.Scanner

	// videoImage and assetsPath are both set when session recording is
	// configured, and both nil/empty otherwise. Partial configuration
	// never reaches a factory.
	videoImage *docker.Image
	assetsPath string
}

// Stereotype returns the capability set this factory advertises.
func (f *SessionFactory) Stereotype() capabilities.Set {
	return f.stereotype
}

// Image returns the resolved backing image.
func (f *SessionFactory) Image() *docker.Image {
	return f.image
}

// Endpoint returns the daemon endpoint the factory is bound to.
func (f *SessionFactory) Endpoint() *url.URL {
	return f.endpoint
}

// RecordsVideo reports whether sessions from this factory get a recording
// sidecar.
func (f *SessionFactory) RecordsVideo() bool {
	return f.videoImage != nil && f.assetsPath != ""
}

// AssetsPath returns the host directory recorded artifacts are written
// to, or "" when recording is disabled.
func (f *SessionFactory) AssetsPath() string {
	return f.assetsPath
}

// Test reports whether this factory can serve the session request, i.e.
// whether every requested capability is present in the stereotype with an
// equal value.
func (f *SessionFactory) Test(request capabilities.Set) bool {
	return f.stereotype.Matches(request)
}

// sessionContainerSpec builds the container spec for the browser half of
// a session.
func (f *SessionFactory) sessionContainerSpec(sessionID string, hostPort int) docker.ContainerSpec {
	return docker.ContainerSpec{
		Name:  fmt.Sprintf("dockgrid-session-%s", shortSessionID(sessionID)),
		Image: f.image.Name,
		Env: map[string]string{
			// Single-session containers; the node does the scheduling.
			"SE_NODE_MAX_SESSIONS":          "1",
			"SE_NODE_OVERRIDE_MAX_SESSIONS": "true",
		},
		Labels: docker.SessionLabels(sessionID, docker.RoleSession, f.stereotype.Canonical()),
		Ports: []docker.PortBinding{
			{ContainerPort: webDriverPort, HostPort: hostPort},
		},
		ShmSizeBytes: browserShmSize,
	}
}

// videoContainerSpec builds the container spec for the recording sidecar.
// The sidecar attaches to the browser container's display by name and
// writes its artifact under the assets path, which is bind-mounted into
// the container.
func (f *SessionFactory) videoContainerSpec(sessionID, sessionContainerName string) docker.ContainerSpec {
	return docker.ContainerSpec{
		Name:  fmt.Sprintf("dockgrid-video-%s", shortSessionID(sessionID)),
		Image: f.videoImage.Name,
		Env: map[string]string{
			"DISPLAY_CONTAINER_NAME": sessionContainerName,
			"SE_VIDEO_FILE_NAME":     sessionID + ".mp4",
		},
		Labels: docker.SessionLabels(sessionID, docker.RoleVideo, f.stereotype.Canonical()),
		Binds:  []string{f.assetsPath + ":" + videoMountPoint},
	}
}

// shortSessionID trims a session UUID to its first block for container
// names, keeping `docker ps` output readable.
func shortSessionID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
