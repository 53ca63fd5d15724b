package docker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/go-connections/nat"

	"github.com/mmr-tortoise/dockgrid/internal/model"
)

// stopTimeoutSeconds is how long the daemon waits for a container to exit
// gracefully before killing it. Browser containers shut down quickly; the
// video recorder needs a few seconds to finalize its artifact file.
const stopTimeoutSeconds = 10

// PortBinding publishes one container TCP port on a host port.
type PortBinding struct {
	// ContainerPort is the port inside the container.
	ContainerPort int

	// HostPort is the host port it is published on.
	HostPort int
}

// ContainerSpec describes a container to create. It covers exactly the
// surface session factories need; anything else stays at SDK defaults.
type ContainerSpec struct {
	// Name is the container name. Empty lets the daemon generate one.
	Name string

	// Image is the image reference to run.
	Image string

	// Env holds environment variables as key/value pairs.
	Env map[string]string

	// Labels are applied verbatim; see label.go for the dockgrid keys.
	Labels map[string]string

	// Ports are the published TCP ports.
	Ports []PortBinding

	// Binds are host mounts in Docker's "host-path:container-path" form.
	Binds []string

	// ShmSizeBytes sets /dev/shm size. Browsers crash with Docker's 64MB
	// default, so session containers pass a larger value. Zero keeps the
	// daemon default.
	ShmSizeBytes int64
}

// CreateContainer creates a container from the spec and returns its ID.
// The container is not started.
func (c *Client) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, pb := range spec.Ports {
		p := nat.Port(fmt.Sprintf("%d/tcp", pb.ContainerPort))
		exposed[p] = struct{}{}
		bindings[p] = []nat.PortBinding{{
			HostIP:   "0.0.0.0",
			HostPort: strconv.Itoa(pb.HostPort),
		}}
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Env:          env,
		Labels:       spec.Labels,
		ExposedPorts: exposed,
	}
	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Binds:        spec.Binds,
		ShmSize:      spec.ShmSizeBytes,
	}

	resp, err := c.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create container from image %s", spec.Image),
			err,
		)
	}

	return resp.ID, nil
}

// StartContainer starts a created container.
func (c *Client) StartContainer(ctx context.Context, id string) error {
	if err := c.inner.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to start container %s", shortID(id)),
			err,
		)
	}
	return nil
}

// StopContainer stops a running container, allowing stopTimeoutSeconds for
// graceful shutdown.
func (c *Client) StopContainer(ctx context.Context, id string) error {
	timeout := stopTimeoutSeconds
	err := c.inner.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to stop container %s", shortID(id)),
			err,
		)
	}
	return nil
}

// RemoveContainer force-removes a container and its anonymous volumes.
func (c *Client) RemoveContainer(ctx context.Context, id string) error {
	err := c.inner.ContainerRemove(ctx, id, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to remove container %s", shortID(id)),
			err,
		)
	}
	return nil
}

// ListSessionContainers returns all containers carrying the dockgrid
// management label, including stopped ones. This is how leftover session
// containers from a crashed node are discovered.
func (c *Client) ListSessionContainers(ctx context.Context) ([]model.ContainerInfo, error) {
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	containers, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list session containers",
			err,
		)
	}

	result := make([]model.ContainerInfo, 0, len(containers))
	for _, ct := range containers {
		name := ""
		if len(ct.Names) > 0 {
			// The API prefixes names with "/".
			name = strings.TrimPrefix(ct.Names[0], "/")
		}
		result = append(result, model.ContainerInfo{
			ContainerID:   ct.ID,
			ContainerName: name,
			Image:         ct.Image,
			Status:        ct.State,
			Labels:        ct.Labels,
		})
	}

	return result, nil
}

// shortID trims a container ID to the 12-character form Docker shows in
// `docker ps`.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
