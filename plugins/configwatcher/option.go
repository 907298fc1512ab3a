package configwatcher

import "github.com/bft-labs/puppetlink/pkg/puppetlink"

// WithConfigWatcher returns a puppetlink Option that enables config file
// watching. The host must also be given the file with
// puppetlink.WithConfigPath.
//
// Usage:
//
//	h, err := puppetlink.New(cfg,
//	    puppetlink.WithConfigPath(path),
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	        Pinned:        changedFlags,
//	    }),
//	)
func WithConfigWatcher(cfg Config) puppetlink.Option {
	plugin := New(cfg)
	return puppetlink.WithPlugin(plugin)
}

// WithDefaultConfigWatcher returns a puppetlink Option that enables config
// watching with default settings (debounce 100ms, nothing pinned).
func WithDefaultConfigWatcher() puppetlink.Option {
	return WithConfigWatcher(DefaultConfig())
}
