package node

import (
	"context"
	"errors"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/dockgrid/internal/capabilities"
	"github.com/mmr-tortoise/dockgrid/internal/config"
	"github.com/mmr-tortoise/dockgrid/internal/docker"
	"github.com/mmr-tortoise/dockgrid/internal/model"
)

// fakeDriver is a recording stub for the Driver interface. It counts
// every daemon contact so tests can verify that disabled configurations
// never touch the runtime.
type fakeDriver struct {
	mu sync.Mutex

	// supported is what IsSupported reports.
	supported bool

	// failures maps image names to the error their resolution fails with.
	failures map[string]error

	// createFailures and startFailures map an image name to the error the
	// corresponding lifecycle call fails with for containers of that image.
	createFailures map[string]error
	startFailures  map[string]error

	// Recorded contacts.
	probes    int
	resolved  []string
	created   []docker.ContainerSpec
	started   []string
	stopped   []string
	removed   []string
	imageByID map[string]string
}

func (d *fakeDriver) IsSupported(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.probes++
	return d.supported
}

func (d *fakeDriver) ResolveImage(ctx context.Context, name string) (*docker.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.failures[name]; ok {
		return nil, err
	}
	d.resolved = append(d.resolved, name)
	return &docker.Image{Name: name, ID: "sha256:" + name}, nil
}

func (d *fakeDriver) CreateContainer(ctx context.Context, spec docker.ContainerSpec) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.createFailures[spec.Image]; ok {
		return "", err
	}
	d.created = append(d.created, spec)
	id := "container-" + spec.Name
	if d.imageByID == nil {
		d.imageByID = make(map[string]string)
	}
	d.imageByID[id] = spec.Image
	return id, nil
}

func (d *fakeDriver) StartContainer(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.startFailures[d.imageByID[id]]; ok {
		return err
	}
	d.started = append(d.started, id)
	return nil
}

func (d *fakeDriver) StopContainer(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = append(d.stopped, id)
	return nil
}

func (d *fakeDriver) RemoveContainer(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removed = append(d.removed, id)
	return nil
}

// resolvedNames returns a copy of the resolved image names.
func (d *fakeDriver) resolvedNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.resolved...)
}

// quietLogger is a logrus logger that discards everything; bootstrap log
// records are not under test here.
func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestOptions wires an Options value with the fake driver and returns
// it together with a counter of driver-factory invocations (i.e. how
// often the runtime was dialed).
func newTestOptions(values map[string]any, driver *fakeDriver) (*Options, *int) {
	v := viper.New()
	for key, value := range values {
		v.Set(key, value)
	}

	dials := 0
	options := NewOptions(config.New(v), quietLogger(),
		WithDriverFactory(func(endpoint *url.URL) (Driver, error) {
			dials++
			return driver, nil
		}))

	return options, &dials
}

// firefoxPair is a minimal well-formed flat configs list.
var firefoxPair = []string{
	"selenium/standalone-firefox:latest",
	`{"browserName": "firefox"}`,
}

// TestSessionFactories_DisabledWithoutConfigs verifies that with no
// configs at all the operation returns an empty (non-nil) table and never
// contacts the runtime: the driver is not even dialed.
func TestSessionFactories_DisabledWithoutConfigs(t *testing.T) {
	driver := &fakeDriver{supported: true}
	options, dials := newTestOptions(nil, driver)

	route, err := options.SessionFactories(context.Background())
	require.NoError(t, err)

	require.NotNil(t, route)
	assert.True(t, route.Empty())
	assert.Zero(t, *dials, "driver must not be dialed when configs are absent")
	assert.Zero(t, driver.probes)
}

// TestSessionFactories_DaemonUnreachable verifies the soft-unavailability
// path: a failing probe disables the feature instead of erroring, and no
// image is pulled.
func TestSessionFactories_DaemonUnreachable(t *testing.T) {
	driver := &fakeDriver{supported: false}
	options, _ := newTestOptions(map[string]any{
		config.KeyConfigs: firefoxPair,
	}, driver)

	route, err := options.SessionFactories(context.Background())
	require.NoError(t, err)

	assert.True(t, route.Empty())
	assert.Equal(t, 1, driver.probes, "exactly one probe, no retries")
	assert.Empty(t, driver.resolvedNames())
}

// TestParseFlatConfigs_OddLength verifies that any odd-length configs
// list fails with a configuration error, for the k=0 and k=1 cases of
// length 2k+1.
func TestParseFlatConfigs_OddLength(t *testing.T) {
	tests := []struct {
		name    string
		configs []string
	}{
		{"single trailing image", []string{"selenium/standalone-firefox:latest"}},
		{"pair plus trailing image", []string{
			"selenium/standalone-firefox:latest", `{"browserName": "firefox"}`,
			"selenium/standalone-chrome:latest",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlatConfigs(tt.configs)
			require.Error(t, err)
			assert.True(t, model.IsConfigError(err))
		})
	}
}

// TestSessionFactories_OddLengthConfigs verifies the odd-length failure
// propagates through the top-level operation and nothing is resolved.
func TestSessionFactories_OddLengthConfigs(t *testing.T) {
	driver := &fakeDriver{supported: true}
	options, _ := newTestOptions(map[string]any{
		config.KeyConfigs: []string{"selenium/standalone-firefox:latest"},
	}, driver)

	route, err := options.SessionFactories(context.Background())
	require.Error(t, err)
	assert.True(t, model.IsConfigError(err))
	assert.Nil(t, route)
	assert.Empty(t, driver.resolvedNames())
}

// TestGroupEntries_OrderIndependence verifies that the grouping's key set
// and per-image stereotype sets do not depend on entry order, and that
// duplicate stereotypes collapse by canonical form.
func TestGroupEntries_OrderIndependence(t *testing.T) {
	forward, err := parseFlatConfigs([]string{
		"firefox-img", `{"browserName": "firefox", "platformName": "linux"}`,
		"chrome-img", `{"browserName": "chrome"}`,
		"firefox-img", `{"platformName": "linux", "browserName": "firefox"}`, // dup, reordered keys
	})
	require.NoError(t, err)

	backward, err := parseFlatConfigs([]string{
		"firefox-img", `{"platformName": "linux", "browserName": "firefox"}`,
		"chrome-img", `{"browserName": "chrome"}`,
		"firefox-img", `{"browserName": "firefox", "platformName": "linux"}`,
	})
	require.NoError(t, err)

	a := groupEntries(forward)
	b := groupEntries(backward)

	assert.ElementsMatch(t, a.images, b.images)
	for _, image := range a.images {
		canonical := func(sets []capabilities.Set) []string {
			keys := make([]string, 0, len(sets))
			for _, s := range sets {
				keys = append(keys, s.Canonical())
			}
			return keys
		}
		assert.ElementsMatch(t, canonical(a.byImage[image]), canonical(b.byImage[image]))
	}

	// The duplicate stereotype collapsed: firefox-img has exactly one.
	assert.Len(t, a.byImage["firefox-img"], 1)
}

// TestSessionFactories_ReplicaExpansion verifies that a single (image,
// stereotype) pair expands into exactly replicaCount() factories, all
// indistinguishable beyond position.
func TestSessionFactories_ReplicaExpansion(t *testing.T) {
	driver := &fakeDriver{supported: true}
	options, _ := newTestOptions(map[string]any{
		config.KeyConfigs: firefoxPair,
	}, driver)

	route, err := options.SessionFactories(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, route.Len())
	entry := route.Entries()[0]

	want := replicaCount()
	require.Len(t, entry.Factories, want)

	for _, factory := range entry.Factories {
		assert.Equal(t, "selenium/standalone-firefox:latest", factory.Image().Name)
		assert.Equal(t, entry.Stereotype.Canonical(), factory.Stereotype().Canonical())
		assert.False(t, factory.RecordsVideo())
	}
}

// TestSessionFactories_VideoWiring verifies the sidecar rule: factories
// are video-wired iff BOTH video-image and assets-path are configured,
// and with partial configuration the video image is never pulled.
func TestSessionFactories_VideoWiring(t *testing.T) {
	t.Run("both configured", func(t *testing.T) {
		driver := &fakeDriver{supported: true}
		options, _ := newTestOptions(map[string]any{
			config.KeyConfigs:    firefoxPair,
			config.KeyVideoImage: "selenium/video:latest",
			config.KeyAssetsPath: "/opt/assets",
		}, driver)

		route, err := options.SessionFactories(context.Background())
		require.NoError(t, err)

		for _, entry := range route.Entries() {
			for _, factory := range entry.Factories {
				assert.True(t, factory.RecordsVideo())
				assert.Equal(t, "/opt/assets", factory.AssetsPath())
			}
		}
		assert.Contains(t, driver.resolvedNames(), "selenium/video:latest")
	})

	partial := []map[string]any{
		{config.KeyConfigs: firefoxPair, config.KeyVideoImage: "selenium/video:latest"},
		{config.KeyConfigs: firefoxPair, config.KeyAssetsPath: "/opt/assets"},
	}
	for _, values := range partial {
		driver := &fakeDriver{supported: true}
		options, _ := newTestOptions(values, driver)

		route, err := options.SessionFactories(context.Background())
		require.NoError(t, err)

		for _, entry := range route.Entries() {
			for _, factory := range entry.Factories {
				assert.False(t, factory.RecordsVideo(),
					"partial video configuration must not wire any sidecar")
			}
		}
		assert.NotContains(t, driver.resolvedNames(), "selenium/video:latest",
			"partial video configuration must skip the video image pull")
	}
}

// TestSessionFactories_AllOrNothing verifies the warm-up failure mode:
// when one of three distinct images fails to resolve, the whole operation
// fails and no routing table is produced for any image.
func TestSessionFactories_AllOrNothing(t *testing.T) {
	boom := errors.New("registry unavailable")
	driver := &fakeDriver{
		supported: true,
		failures:  map[string]error{"broken-img": boom},
	}
	options, _ := newTestOptions(map[string]any{
		config.KeyConfigs: []string{
			"firefox-img", `{"browserName": "firefox"}`,
			"broken-img", `{"browserName": "chrome"}`,
			"edge-img", `{"browserName": "MicrosoftEdge"}`,
		},
	}, driver)

	route, err := options.SessionFactories(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom, "the first failing pull propagates verbatim")
	assert.Nil(t, route, "no partially populated table")
}

// TestSessionFactories_RecordsFile verifies the structured records file:
// its entries are appended after the flat-list entries and produce
// factories like any flat entry.
func TestSessionFactories_RecordsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "images.yaml")
	content := `images:
  - image: selenium/standalone-chrome:latest
    stereotype:
      browserName: chrome
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	driver := &fakeDriver{supported: true}
	options, _ := newTestOptions(map[string]any{
		config.KeyConfigs:     firefoxPair,
		config.KeyConfigsFile: path,
	}, driver)

	route, err := options.SessionFactories(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, route.Len())
	// Flat-list group first, records-file group after it.
	assert.Equal(t, "firefox", route.Entries()[0].Stereotype.BrowserName())
	assert.Equal(t, "chrome", route.Entries()[1].Stereotype.BrowserName())

	resolved := driver.resolvedNames()
	assert.Contains(t, resolved, "selenium/standalone-firefox:latest")
	assert.Contains(t, resolved, "selenium/standalone-chrome:latest")
}

// TestSessionFactories_SharedStereotypeAcrossImages verifies that two
// images serving the same stereotype end up in one group whose factories
// preserve per-image construction order.
func TestSessionFactories_SharedStereotypeAcrossImages(t *testing.T) {
	driver := &fakeDriver{supported: true}
	options, _ := newTestOptions(map[string]any{
		config.KeyConfigs: []string{
			"firefox-esr-img", `{"browserName": "firefox"}`,
			"firefox-beta-img", `{"browserName": "firefox"}`,
		},
	}, driver)

	route, err := options.SessionFactories(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, route.Len())
	factories := route.Entries()[0].Factories
	require.Len(t, factories, 2*replicaCount())

	// First all replicas of the first image, then the second image's.
	assert.Equal(t, "firefox-esr-img", factories[0].Image().Name)
	assert.Equal(t, "firefox-beta-img", factories[len(factories)-1].Image().Name)
}
