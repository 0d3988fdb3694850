package shadercache

// Option configures a Manager during creation.
//
// Example:
//
//	// Monolithic programs with a warm binary store:
//	m, err := shadercache.New(dev, gens,
//	    shadercache.WithDiskCache(cacheDir, appID))
//
//	// Separable pipelines on a driver with the stage-caching bug:
//	m, err := shadercache.New(dev, gens,
//	    shadercache.WithSeparablePrograms(),
//	    shadercache.WithStageRebindWorkaround())
type Option func(*managerOptions)

// managerOptions holds optional configuration for Manager creation.
type managerOptions struct {
	separable    bool
	rebindStages bool
	diskCache    bool
	cacheDir     string
	appID        uint64
}

// defaultOptions returns the default manager options: monolithic programs,
// no workarounds, no persistence.
func defaultOptions() managerOptions {
	return managerOptions{}
}

// WithSeparablePrograms selects the separable binding model: each stage is
// an independently swappable program object combined at draw time through a
// pipeline object. Without this option stages are linked into monolithic
// programs.
//
// The binding model is fixed for the manager's lifetime.
func WithSeparablePrograms() Option {
	return func(o *managerOptions) {
		o.separable = true
	}
}

// WithStageRebindWorkaround clears all pipeline stage slots before
// rebinding them on every Apply. Some drivers cache pipeline stage state
// incorrectly when only a subset of stages changes between draws; clearing
// first forces a full rebind. Only meaningful with separable programs.
func WithStageRebindWorkaround() Option {
	return func(o *managerOptions) {
		o.rebindStages = true
	}
}

// WithDiskCache persists linked-program binaries under dir, in a file named
// after the emulated application's identifier. The store is loaded when the
// Manager is created and written back by Destroy. Only meaningful with
// monolithic programs; separable mode never creates linked programs to
// persist.
func WithDiskCache(dir string, appID uint64) Option {
	return func(o *managerOptions) {
		o.diskCache = true
		o.cacheDir = dir
		o.appID = appID
	}
}
