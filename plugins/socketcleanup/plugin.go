// Package socketcleanup removes socket files left behind by hosts that
// were killed before they could close their listeners.
//
// A listener removes its socket file when it closes, and sockets only
// exist while workers are connecting. Any matching file older than
// MaxAge therefore belongs to a dead host.
package socketcleanup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/puppetlink/pkg/log"
	"github.com/bft-labs/puppetlink/pkg/puppetlink"
)

// Plugin implements stale socket cleanup.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	checkInterval time.Duration
	maxAge        time.Duration

	// Runtime state
	current func() puppetlink.Config
	logger  puppetlink.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Config holds configuration options for the socket cleanup plugin.
type Config struct {
	// CheckInterval is how often the socket directory is scanned.
	// Default: 1 hour
	CheckInterval time.Duration

	// MaxAge is the age above which a socket file is considered stale.
	// Default: 10 minutes
	MaxAge time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval: time.Hour,
		MaxAge:        10 * time.Minute,
	}
}

// New creates a new socket cleanup plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Hour
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 10 * time.Minute
	}
	return &Plugin{
		checkInterval: cfg.CheckInterval,
		maxAge:        cfg.MaxAge,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "socketcleanup"
}

// Initialize runs one scan synchronously, before the workers are set up,
// and starts the periodic scan.
func (p *Plugin) Initialize(ctx context.Context, cfg puppetlink.PluginConfig) error {
	p.mu.Lock()
	p.current = cfg.Current
	p.logger = cfg.Logger
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	p.mu.Unlock()

	if p.current == nil {
		p.logger.Warn("socket cleanup disabled: no configuration")
		return nil
	}

	p.cleanupOnce(ctx)

	cleanupCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.cleanupLoop(cleanupCtx)
	return nil
}

// Shutdown stops the cleanup loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanupOnce(ctx)
		}
	}
}

// cleanupOnce removes stale sockets from the configured socket directory.
func (p *Plugin) cleanupOnce(ctx context.Context) {
	p.mu.RLock()
	dir := p.current().SocketDir
	p.mu.RUnlock()
	if dir == "" {
		dir = os.TempDir()
	}

	removed, err := removeStale(ctx, dir, p.maxAge, time.Now())
	if err != nil {
		p.logger.Error("socket cleanup failed", log.String("dir", dir), log.Err(err))
		return
	}
	if removed > 0 {
		p.logger.Info("socket cleanup completed",
			log.String("dir", dir),
			log.Int("removed", removed),
		)
	}
}

// removeStale deletes socket files in dir older than maxAge and returns
// how many were removed.
func removeStale(ctx context.Context, dir string, maxAge time.Duration, now time.Time) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, puppetlink.SocketGlob))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range matches {
		if ctx.Err() != nil {
			break
		}
		info, err := os.Lstat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Ensure Plugin implements puppetlink.Plugin.
var _ puppetlink.Plugin = (*Plugin)(nil)
