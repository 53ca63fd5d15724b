package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/dockgrid/internal/model"
)

// newTestConfig builds a Config backed by a fresh viper instance with the
// given docker-section values pre-set.
func newTestConfig(values map[string]any) *Config {
	v := viper.New()
	for key, value := range values {
		v.Set(key, value)
	}
	return New(v)
}

// TestHasConfigs verifies the "feature enabled at all" predicate for the
// three sources of image configuration.
func TestHasConfigs(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   bool
	}{
		{"nothing set", nil, false},
		{"flat list set", map[string]any{KeyConfigs: []string{"img", "{}"}}, true},
		{"records file set", map[string]any{KeyConfigsFile: "images.yaml"}, true},
		{"only video settings", map[string]any{KeyVideoImage: "video:latest"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newTestConfig(tt.values).HasConfigs())
		})
	}
}

// TestVideoRecordingAvailable verifies that recording requires BOTH the
// video image and the assets path; one without the other leaves recording
// disabled.
func TestVideoRecordingAvailable(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   bool
	}{
		{"both set", map[string]any{
			KeyVideoImage: "selenium/video:latest",
			KeyAssetsPath: "/opt/assets",
		}, true},
		{"only image", map[string]any{KeyVideoImage: "selenium/video:latest"}, false},
		{"only path", map[string]any{KeyAssetsPath: "/opt/assets"}, false},
		{"neither", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newTestConfig(tt.values).VideoRecordingAvailable())
		})
	}
}

// TestLoadImageRecords_Valid verifies that a well-formed records file is
// loaded with record order preserved.
func TestLoadImageRecords_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.yaml")
	content := `images:
  - image: selenium/standalone-firefox:latest
    stereotype:
      browserName: firefox
  - image: selenium/standalone-chrome:latest
    stereotype:
      browserName: chrome
      platformName: linux
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	records, err := LoadImageRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "selenium/standalone-firefox:latest", records[0].Image)
	assert.Equal(t, "firefox", records[0].Stereotype["browserName"])
	assert.Equal(t, "selenium/standalone-chrome:latest", records[1].Image)
	assert.Equal(t, "linux", records[1].Stereotype["platformName"])
}

// TestLoadImageRecords_MissingFile verifies that a nonexistent file is a
// configuration error rather than a silent empty result.
func TestLoadImageRecords_MissingFile(t *testing.T) {
	_, err := LoadImageRecords(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
}

// TestLoadImageRecords_InvalidRecords verifies per-record validation:
// every record needs an image and a non-empty stereotype.
func TestLoadImageRecords_InvalidRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"record without image", "images:\n  - stereotype:\n      browserName: firefox\n"},
		{"record without stereotype", "images:\n  - image: selenium/standalone-firefox:latest\n"},
		{"not yaml", "{{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "images.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadImageRecords(path)
			require.Error(t, err)
			assert.True(t, model.IsConfigError(err))
		})
	}
}
