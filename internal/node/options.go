package node

import (
	"context"
	"fmt"
	"net/url"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/mmr-tortoise/dockgrid/internal/capabilities"
	"github.com/mmr-tortoise/dockgrid/internal/config"
	"github.com/mmr-tortoise/dockgrid/internal/docker"
	"github.com/mmr-tortoise/dockgrid/internal/model"
	"github.com/mmr-tortoise/dockgrid/internal/parallel"
	"github.com/mmr-tortoise/dockgrid/internal/port"
)

// Driver is the container-runtime surface the node core consumes. It is
// satisfied by *docker.Client and replaced with stubs in tests.
//
// The shared driver handle is read-only from every factory's perspective;
// factories never mutate it, so no locking is needed around it.
type Driver interface {
	// IsSupported reports whether the daemon is reachable and speaks a
	// supported API version. Never returns an error; unreachable is false.
	IsSupported(ctx context.Context) bool

	// ResolveImage ensures the named image is present on the daemon and
	// returns its handle, pulling it when needed.
	ResolveImage(ctx context.Context, name string) (*docker.Image, error)

	// Container lifecycle used by session factories.
	CreateContainer(ctx context.Context, spec docker.ContainerSpec) (string, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
}

// DriverFactory opens a driver for the resolved daemon endpoint.
type DriverFactory func(endpoint *url.URL) (Driver, error)

// defaultDriverFactory connects a real Docker client.
func defaultDriverFactory(endpoint *url.URL) (Driver, error) {
	return docker.NewClient(endpoint)
}

// Options builds the session-factory routing table from the docker section
// of the configuration. All state is derived fresh per call; an Options
// value only carries its collaborators.
type Options struct {
	cfg       *config.Config
	log       *logrus.Logger
	newDriver DriverFactory
	pool      *parallel.Pool
	ports     *port.Scanner
}

// Option customizes an Options value.
type Option func(*Options)

// WithDriverFactory replaces how the runtime driver is opened. Tests use
// this to inject recording stubs.
func WithDriverFactory(factory DriverFactory) Option {
	return func(o *Options) {
		o.newDriver = factory
	}
}

// WithPool replaces the worker pool used for image warm-up.
func WithPool(pool *parallel.Pool) Option {
	return func(o *Options) {
		o.pool = pool
	}
}

// NewOptions creates the bootstrap entry point for container-backed
// sessions. cfg and log must not be nil.
func NewOptions(cfg *config.Config, log *logrus.Logger, opts ...Option) *Options {
	o := &Options{
		cfg:       cfg,
		log:       log,
		newDriver: defaultDriverFactory,
		pool:      parallel.NewPool(0),
		ports:     port.NewScanner(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Endpoint resolves the Docker daemon endpoint for the current
// configuration. See ResolveEndpoint for the resolution order.
func (o *Options) Endpoint() (*url.URL, error) {
	return ResolveEndpoint(o.cfg)
}

// enabled decides whether container-backed sessions are offered at all.
//
// Without any image configuration it returns false immediately and never
// contacts the daemon. Otherwise it resolves the endpoint, opens a driver
// and asks it for support. An unreachable daemon is soft: the node starts
// without container sessions rather than failing. Only endpoint or driver
// construction problems surface as errors, and those are configuration
// errors.
func (o *Options) enabled(ctx context.Context) (bool, error) {
	if !o.cfg.HasConfigs() {
		return false, nil
	}

	endpoint, err := o.Endpoint()
	if err != nil {
		return false, err
	}

	driver, err := o.newDriver(endpoint)
	if err != nil {
		return false, err
	}

	return driver.IsSupported(ctx), nil
}

// imageStereotype is one parsed configuration entry: an image and the
// stereotype it serves. Image names may repeat across entries.
type imageStereotype struct {
	image      string
	stereotype capabilities.Set
}

// configEntries collects all (image, stereotype) entries: first the flat
// alternating docker.configs list, then the records of docker.configs-file
// in file order.
func (o *Options) configEntries() ([]imageStereotype, error) {
	entries, err := parseFlatConfigs(o.cfg.Configs())
	if err != nil {
		return nil, err
	}

	if path := o.cfg.ConfigsFile(); path != "" {
		records, err := config.LoadImageRecords(path)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			entries = append(entries, imageStereotype{
				image:      rec.Image,
				stereotype: capabilities.Set(rec.Stereotype),
			})
		}
	}

	return entries, nil
}

// parseFlatConfigs consumes the flat alternating list two elements at a
// time: an image name followed by its stereotype payload. A trailing image
// name with no payload is a configuration error.
func parseFlatConfigs(configs []string) ([]imageStereotype, error) {
	if len(configs)%2 != 0 {
		return nil, model.NewConfigError(fmt.Sprintf(
			"docker configs must be image/stereotype pairs, got %d entries (missing stereotype for %q)",
			len(configs), configs[len(configs)-1]))
	}

	entries := make([]imageStereotype, 0, len(configs)/2)
	for i := 0; i < len(configs); i += 2 {
		stereotype, err := capabilities.Parse(configs[i+1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, imageStereotype{
			image:      configs[i],
			stereotype: stereotype,
		})
	}

	return entries, nil
}

// grouping maps image names to their stereotype sets, collapsing duplicate
// stereotypes by canonical form while preserving first-seen order of both
// images and stereotypes.
type grouping struct {
	images  []string
	byImage map[string][]capabilities.Set
	seen    map[string]map[string]bool // image -> canonical stereotype -> present
}

// groupEntries folds the parsed entries into a grouping.
func groupEntries(entries []imageStereotype) *grouping {
	g := &grouping{
		byImage: make(map[string][]capabilities.Set),
		seen:    make(map[string]map[string]bool),
	}
	for _, entry := range entries {
		if _, ok := g.seen[entry.image]; !ok {
			g.images = append(g.images, entry.image)
			g.seen[entry.image] = make(map[string]bool)
		}
		key := entry.stereotype.Canonical()
		if g.seen[entry.image][key] {
			continue
		}
		g.seen[entry.image][key] = true
		g.byImage[entry.image] = append(g.byImage[entry.image], entry.stereotype)
	}
	return g
}

// warmImages resolves every named image concurrently on the worker pool
// and blocks until all are done. The first failure aborts the whole
// warm-up; results of in-flight siblings are discarded. A canceled wait
// surfaces as the group error rather than being swallowed.
func (o *Options) warmImages(ctx context.Context, driver Driver, names []string) error {
	tasks := make([]parallel.Task, 0, len(names))
	for _, name := range names {
		tasks = append(tasks, func(ctx context.Context) error {
			_, err := driver.ResolveImage(ctx, name)
			return err
		})
	}

	return o.pool.Run(ctx, tasks...)
}

// SessionFactories builds the routing table handed to the node
// registration collaborator.
//
// When container sessions are disabled (no configs, or daemon unreachable)
// the result is an empty table, not an error. Otherwise every referenced
// image, plus the video sidecar image when recording is fully configured,
// is confirmed available before any factory is constructed, and the table
// is either complete or the whole operation fails.
func (o *Options) SessionFactories(ctx context.Context) (*Route, error) {
	route := newRoute()

	ok, err := o.enabled(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		o.log.Debug("container-backed sessions are disabled")
		return route, nil
	}

	entries, err := o.configEntries()
	if err != nil {
		return nil, err
	}
	groups := groupEntries(entries)

	endpoint, err := o.Endpoint()
	if err != nil {
		return nil, err
	}
	driver, err := o.newDriver(endpoint)
	if err != nil {
		return nil, err
	}

	recording := o.cfg.VideoRecordingAvailable()

	warm := make([]string, len(groups.images))
	copy(warm, groups.images)
	if recording {
		warm = append(warm, o.cfg.VideoImage())
	}
	if err := o.warmImages(ctx, driver, warm); err != nil {
		return nil, err
	}

	var videoImage *docker.Image
	if recording {
		// Already warmed; this is a cache hit on the driver.
		videoImage, err = driver.ResolveImage(ctx, o.cfg.VideoImage())
		if err != nil {
			return nil, err
		}
	}

	replicas := replicaCount()
	for _, name := range groups.images {
		image, err := driver.ResolveImage(ctx, name)
		if err != nil {
			return nil, err
		}

		for _, stereotype := range groups.byImage[name] {
			for i := 0; i < replicas; i++ {
				factory := &SessionFactory{
					log:        o.log,
					driver:     driver,
					endpoint:   endpoint,
					image:      image,
					stereotype: stereotype,
					ports:      o.ports,
				}
				if recording {
					factory.videoImage = videoImage
					factory.assetsPath = o.cfg.AssetsPath()
				}
				route.add(stereotype, factory)
			}

			o.log.WithFields(logrus.Fields{
				"image":      name,
				"stereotype": stereotype.Canonical(),
				"replicas":   replicas,
			}).Info("mapping stereotype to docker image")
		}
	}

	return route, nil
}

// replicaCount is the number of interchangeable execution slots per
// (image, stereotype) pair: one per host processing unit, never below 1.
func replicaCount() int {
	return max(runtime.NumCPU(), 1)
}
