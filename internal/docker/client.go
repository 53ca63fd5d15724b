package docker

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/versions"
	"github.com/docker/docker/client"

	"github.com/mmr-tortoise/dockgrid/internal/model"
)

// minAPIVersion is the oldest Docker Engine API version the driver
// accepts. Exec and mount features used for session containers are stable
// from 1.41 (Engine 20.10) onward.
const minAPIVersion = "1.41"

// pingTimeout bounds the daemon support probe. 5 seconds is generous
// enough for Docker Desktop on macOS, which responds slower than native
// Linux Docker.
const pingTimeout = 5 * time.Second

// Image is the resolved handle for a named container image. Handles are
// owned and cached by the Client; callers only reference them.
type Image struct {
	// Name is the reference the image was requested under.
	Name string

	// ID is the content-addressable image ID reported by the daemon.
	ID string
}

// Client wraps the Docker Engine SDK client as the session runtime driver.
// It adds endpoint-URI handling, a support probe, and an image cache on
// top of the raw SDK.
//
// A Client is safe for concurrent use: the underlying SDK client is
// goroutine-safe and the image cache is guarded by a mutex. Session
// factories share one Client and treat it as read-only.
type Client struct {
	inner client.APIClient

	mu     sync.Mutex
	images map[string]*Image
}

// NewClient creates a driver connected to the daemon at the given endpoint
// URI. Supported schemes are http, https and tcp (all dialed as tcp), unix
// (domain socket) and npipe (Windows named pipe).
//
// API version negotiation is enabled so the client works against any
// reasonably recent daemon without hardcoding a version.
func NewClient(endpoint *url.URL) (*Client, error) {
	host, err := sdkHost(endpoint)
	if err != nil {
		return nil, err
	}

	inner, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to create Docker client for %s", host),
			err,
		)
	}

	return &Client{inner: inner, images: make(map[string]*Image)}, nil
}

// sdkHost converts an endpoint URI into the host string understood by the
// Docker SDK. The http/https/tcp schemes all map to a tcp dial address;
// unix and npipe pass through with their path.
func sdkHost(endpoint *url.URL) (string, error) {
	switch endpoint.Scheme {
	case "http", "https", "tcp":
		if endpoint.Host == "" {
			return "", model.NewConfigError(
				fmt.Sprintf("docker endpoint %q has no host", endpoint))
		}
		return "tcp://" + endpoint.Host, nil
	case "unix":
		return "unix://" + endpoint.Path, nil
	case "npipe":
		return "npipe://" + endpoint.Path, nil
	default:
		return "", model.NewConfigError(
			fmt.Sprintf("unsupported docker endpoint scheme %q", endpoint.Scheme))
	}
}

// Inner exposes the underlying SDK client for operations not wrapped by
// this package.
func (c *Client) Inner() client.APIClient {
	return c.inner
}

// IsSupported reports whether the daemon is reachable and speaks a
// supported API version. It is a single synchronous check with no retries;
// an unreachable daemon yields false, never an error.
func (c *Client) IsSupported(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	ping, err := c.inner.Ping(pingCtx)
	if err != nil {
		return false
	}

	// Older daemons may omit the API version from the ping response; the
	// negotiated client version covers that case.
	apiVersion := ping.APIVersion
	if apiVersion == "" {
		apiVersion = c.inner.ClientVersion()
	}

	return versions.GreaterThanOrEqualTo(apiVersion, minAPIVersion)
}

// ResolveImage ensures the named image is present on the daemon and
// returns its handle. Images already known to the daemon are not pulled
// again; resolved handles are cached per client, so concurrent warm-up and
// later factory construction share one resolution per name.
func (c *Client) ResolveImage(ctx context.Context, name string) (*Image, error) {
	c.mu.Lock()
	if img, ok := c.images[name]; ok {
		c.mu.Unlock()
		return img, nil
	}
	c.mu.Unlock()

	inspect, _, err := c.inner.ImageInspectWithRaw(ctx, name)
	if err != nil {
		// Not present locally (or the daemon hiccuped); pull and retry
		// the inspect once.
		if err := c.pullImage(ctx, name); err != nil {
			return nil, err
		}
		inspect, _, err = c.inner.ImageInspectWithRaw(ctx, name)
	}
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitImageError,
			fmt.Sprintf("unable to resolve image %s", name),
			err,
		)
	}

	img := &Image{Name: name, ID: inspect.ID}

	c.mu.Lock()
	c.images[name] = img
	c.mu.Unlock()

	return img, nil
}

// pullImage pulls the named image and drains the progress stream. The
// stream must be consumed fully or the pull is aborted by the daemon.
func (c *Client) pullImage(ctx context.Context, name string) error {
	reader, err := c.inner.ImagePull(ctx, name, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitImageError,
			fmt.Sprintf("failed to pull image %s", name),
			err,
		)
	}

	_, copyErr := io.Copy(io.Discard, reader)
	closeErr := reader.Close()

	if copyErr != nil {
		return model.WrapCLIError(
			model.ExitImageError,
			fmt.Sprintf("failed to read pull output for image %s", name),
			copyErr,
		)
	}
	if closeErr != nil {
		return model.WrapCLIError(
			model.ExitImageError,
			fmt.Sprintf("failed to close pull stream for image %s", name),
			closeErr,
		)
	}

	return nil
}
