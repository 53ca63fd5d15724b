// Package docker wraps the Docker Engine SDK as the runtime driver for
// container-backed browser sessions.
//
// This package handles:
//   - Client construction from a resolved endpoint URI (tcp, http, unix,
//     npipe), with API version negotiation
//   - The daemon support probe used to decide whether container sessions
//     are offered at all
//   - Image resolution: inspect-then-pull with a per-client cache, so each
//     referenced image is pulled at most once per bootstrap
//   - Session container lifecycle: create, start, stop, remove, tagged
//     with dockgrid labels for later discovery
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK and github.com/docker/go-connections for port bindings.
package docker
