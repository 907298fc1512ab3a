package socketcleanup

import "github.com/bft-labs/puppetlink/pkg/puppetlink"

// WithSocketCleanup returns a puppetlink Option that removes stale socket
// files from the socket directory at start and every CheckInterval.
//
// Usage:
//
//	h, err := puppetlink.New(cfg,
//	    socketcleanup.WithSocketCleanup(socketcleanup.Config{
//	        CheckInterval: time.Hour,
//	        MaxAge:        10 * time.Minute,
//	    }),
//	)
func WithSocketCleanup(cfg Config) puppetlink.Option {
	plugin := New(cfg)
	return puppetlink.WithPlugin(plugin)
}

// WithDefaultSocketCleanup returns a puppetlink Option that enables socket
// cleanup with default settings (scan every hour, 10 minute age).
func WithDefaultSocketCleanup() puppetlink.Option {
	return WithSocketCleanup(DefaultConfig())
}
