package node

import (
	"net/url"
	"runtime"
	"strings"

	"github.com/mmr-tortoise/dockgrid/internal/config"
	"github.com/mmr-tortoise/dockgrid/internal/model"
)

// Platform default endpoints used when neither url nor host is configured.
const (
	// defaultWindowsEndpoint is the conventional Docker Desktop TCP
	// endpoint on Windows.
	defaultWindowsEndpoint = "http://localhost:2376"

	// defaultUnixEndpoint is the Docker daemon domain socket everywhere
	// else.
	defaultUnixEndpoint = "unix:///var/run/docker.sock"
)

// ResolveEndpoint derives the Docker daemon endpoint from configuration.
// The endpoint is derived fresh on each call and never cached, so it
// always reflects the current configuration.
//
// Resolution order:
//  1. docker.url set: parsed verbatim.
//  2. docker.host set: "http://" is prefixed unless the value already
//     carries a tcp/http/https scheme, then the URI is rebuilt keeping
//     only userinfo, host, port and path, with the scheme normalized to
//     "http" and any query or fragment discarded.
//  3. Neither set: the platform default.
//
// Any parse failure is a configuration error wrapping the underlying
// cause.
func ResolveEndpoint(cfg *config.Config) (*url.URL, error) {
	if raw := cfg.URL(); raw != "" {
		endpoint, err := url.Parse(raw)
		if err != nil {
			return nil, model.WrapConfigError("unable to determine docker url", err)
		}
		return endpoint, nil
	}

	if host := cfg.Host(); host != "" {
		return normalizeHost(host)
	}

	return defaultEndpoint()
}

// normalizeHost turns a bare or scheme-qualified host value into a
// normalized http endpoint.
func normalizeHost(host string) (*url.URL, error) {
	if !hasEndpointScheme(host) {
		host = "http://" + host
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return nil, model.WrapConfigError("unable to determine docker url", err)
	}
	if parsed.Host == "" {
		return nil, model.NewConfigError("docker host value has no host component")
	}

	// Rebuild rather than mutate: only scheme, userinfo, host:port and
	// path survive, which drops query and fragment.
	return &url.URL{
		Scheme: "http",
		User:   parsed.User,
		Host:   parsed.Host,
		Path:   parsed.Path,
	}, nil
}

// hasEndpointScheme reports whether the host value already carries one of
// the endpoint schemes that must not be double-prefixed.
func hasEndpointScheme(host string) bool {
	return strings.HasPrefix(host, "tcp:") ||
		strings.HasPrefix(host, "http:") ||
		strings.HasPrefix(host, "https")
}

// defaultEndpoint picks the endpoint for the platform dockgrid runs on.
func defaultEndpoint() (*url.URL, error) {
	raw := defaultUnixEndpoint
	if runtime.GOOS == "windows" {
		raw = defaultWindowsEndpoint
	}

	endpoint, err := url.Parse(raw)
	if err != nil {
		// The defaults are constants; a parse failure is a programming
		// error, but surface it as a config error rather than panic.
		return nil, model.WrapConfigError("unable to determine docker url", err)
	}
	return endpoint, nil
}
