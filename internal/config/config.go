// Package config provides typed access to the "docker" section of the
// dockgrid configuration.
//
// Configuration is backed by a viper instance, so values can come from a
// config file, environment variables, or CLI flags bound by the cli package.
// All keys live under the single "docker" section:
//
//	docker:
//	  url: http://127.0.0.1:2375        # explicit daemon endpoint
//	  host: example:2375                # endpoint host, used if url absent
//	  configs:                          # alternating image / stereotype pairs
//	    - selenium/standalone-firefox:latest
//	    - '{"browserName": "firefox"}'
//	  configs-file: images.yaml         # structured image records (see records.go)
//	  video-image: selenium/video:latest
//	  assets-path: /opt/dockgrid/assets
package config

import "github.com/spf13/viper"

// Section is the configuration section holding all dockgrid settings.
const Section = "docker"

// Keys within the docker section.
const (
	KeyURL         = Section + ".url"
	KeyHost        = Section + ".host"
	KeyConfigs     = Section + ".configs"
	KeyConfigsFile = Section + ".configs-file"
	KeyVideoImage  = Section + ".video-image"
	KeyAssetsPath  = Section + ".assets-path"
)

// Config wraps a viper instance and exposes the docker-section values as
// typed accessors. The wrapper keeps the rest of the codebase independent
// of viper key strings.
type Config struct {
	v *viper.Viper
}

// New creates a Config backed by the given viper instance. The instance
// must not be nil; callers that have no file-based configuration can pass
// viper.New().
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// URL returns the explicit daemon endpoint, or "" when unset. When present
// it takes priority over Host and the platform default.
func (c *Config) URL() string {
	return c.v.GetString(KeyURL)
}

// Host returns the daemon endpoint host, or "" when unset. The value is
// scheme-normalized by the endpoint resolver before use.
func (c *Config) Host() string {
	return c.v.GetString(KeyHost)
}

// Configs returns the flat alternating (image-name, stereotype-payload)
// list. An empty slice means the flat list is absent.
func (c *Config) Configs() []string {
	return c.v.GetStringSlice(KeyConfigs)
}

// ConfigsFile returns the path of the structured image-records file, or ""
// when unset.
func (c *Config) ConfigsFile() string {
	return c.v.GetString(KeyConfigsFile)
}

// HasConfigs reports whether any image configuration exists at all. When
// false, container-backed sessions are disabled and the daemon is never
// contacted.
func (c *Config) HasConfigs() bool {
	return len(c.Configs()) > 0 || c.ConfigsFile() != ""
}

// VideoImage returns the recording sidecar image reference, or "" when
// unset.
func (c *Config) VideoImage() string {
	return c.v.GetString(KeyVideoImage)
}

// AssetsPath returns the host directory where recorded session artifacts
// are stored, or "" when unset.
func (c *Config) AssetsPath() string {
	return c.v.GetString(KeyAssetsPath)
}

// VideoRecordingAvailable reports whether session recording is fully
// configured. Both the video image and the assets path are required;
// setting only one of them leaves recording disabled everywhere.
func (c *Config) VideoRecordingAvailable() bool {
	return c.VideoImage() != "" && c.AssetsPath() != ""
}
