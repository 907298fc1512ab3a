// Package configwatcher reloads the puppetlink configuration file when it
// changes on disk.
//
// Only settings that apply to the next worker set up are reloaded:
// alive_interval, forward_output and debug_puppet. Keys given on the
// command line stay pinned to their flag values.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/puppetlink/internal/cliconfig"
	"github.com/bft-labs/puppetlink/pkg/log"
	"github.com/bft-labs/puppetlink/pkg/puppetlink"
)

// Plugin watches the host's configuration file.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay time.Duration
	pinned        map[string]bool

	// Runtime state
	path     string
	logger   puppetlink.Logger
	current  func() puppetlink.Config
	reload   func(puppetlink.Config) error
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before
	// reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Pinned lists flag names (e.g. "alive-interval") whose values must
	// not be replaced from the file.
	Pinned map[string]bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		pinned:        cfg.Pinned,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching cfg.ConfigPath. Without a path the plugin
// stays idle.
func (p *Plugin) Initialize(ctx context.Context, cfg puppetlink.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.ConfigPath
	p.logger = cfg.Logger
	p.current = cfg.Current
	p.reload = cfg.Reload
	p.mu.Unlock()

	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	if p.path == "" || p.current == nil || p.reload == nil {
		p.logger.Warn("config watcher disabled: no configuration file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.reloadFile(); err != nil {
			p.logger.Error("config reload failed", log.String("path", p.path), log.Err(err))
		}
	})
}

// reloadFile parses the file and hands the live settings to the host.
func (p *Plugin) reloadFile() error {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		return err
	}
	next, changed, err := applyLiveKeys(p.current(), fc, p.pinned)
	if err != nil {
		return err
	}
	if !changed {
		p.logger.Debug("config file changed, no live settings differ")
		return nil
	}
	return p.reload(next)
}

// applyLiveKeys copies the reloadable keys of fc onto cur.
func applyLiveKeys(cur puppetlink.Config, fc cliconfig.FileConfig, pinned map[string]bool) (puppetlink.Config, bool, error) {
	scratch := cliconfig.Config{
		AliveInterval: cur.AliveInterval,
		ForwardOutput: cur.ForwardOutput,
		DebugPuppet:   cur.DebugPuppet,
	}
	if err := cliconfig.ApplyFileConfig(&scratch, fc, pinned); err != nil {
		return cur, false, err
	}

	changed := scratch.AliveInterval != cur.AliveInterval ||
		scratch.ForwardOutput != cur.ForwardOutput ||
		scratch.DebugPuppet != cur.DebugPuppet

	cur.AliveInterval = scratch.AliveInterval
	cur.ForwardOutput = scratch.ForwardOutput
	cur.DebugPuppet = scratch.DebugPuppet
	return cur, changed, nil
}

// Ensure Plugin implements puppetlink.Plugin.
var _ puppetlink.Plugin = (*Plugin)(nil)
