package puppetlink

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bft-labs/puppetlink/internal/adapters/process"
	"github.com/bft-labs/puppetlink/internal/app"
	"github.com/bft-labs/puppetlink/pkg/log"
)

// pluginShutdownTimeout bounds each plugin's Shutdown call.
const pluginShutdownTimeout = 5 * time.Second

// Host owns the worker processes of one scene and the proxy used to talk
// to them.
type Host struct {
	opts       options
	logger     Logger
	supervisor *process.Supervisor
	manager    *app.Manager

	mu      sync.Mutex
	config  Config
	proxy   *app.ServerProxy
	cancel  context.CancelFunc
	runCtx  context.Context
	restart restartPolicy
	pending sync.WaitGroup
}

// New creates a stopped Host. Call Start to launch the workers.
func New(cfg Config, opts ...Option) (*Host, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.client == nil {
		o.client = NopClient{}
	}
	if o.prompter == nil {
		o.prompter = process.ConsolePrompter{In: os.Stdin, Out: os.Stderr}
	}

	var emitter app.EventEmitter
	if o.eventHandler != nil {
		emitter = &eventEmitterWrapper{handler: o.eventHandler}
	}

	sup := process.NewSupervisor(o.logger, o.prompter, cfg.StartTimeout)
	mgr, err := app.NewManager(cfg.managerConfig(), sup, o.logger, emitter)
	if err != nil {
		return nil, err
	}
	if o.output != nil {
		mgr.SetOutputHandler(o.output)
	}

	h := &Host{
		opts:       o,
		logger:     o.logger,
		supervisor: sup,
		manager:    mgr,
		config:     cfg,
		restart:    newRestartPolicy(cfg.RestartDelay),
	}
	mgr.SetCrashCallback(h.onCrash)
	return h, nil
}

// Start initializes plugins, launches a worker per role and waits for all
// of them to connect back. ctx bounds the set up and the lifetime of
// automatic restarts.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.proxy != nil {
		h.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	h.runCtx = runCtx
	h.cancel = cancel
	cfg := h.config
	h.mu.Unlock()

	pluginCfg := PluginConfig{
		ConfigPath: h.opts.configPath,
		Logger:     h.logger,
		Current:    h.Config,
		Reload:     h.Reload,
	}
	for i, p := range h.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			h.shutdownPlugins(i)
			cancel()
			return fmt.Errorf("plugin %s initialize: %w", p.Name(), err)
		}
		h.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	h.logger.Info("starting puppets",
		log.String("puppet_path", cfg.PuppetPath),
		log.Strings("roles", h.manager.Connections()),
	)

	proxy, err := app.NewServerProxy(runCtx, h.manager, h.opts.client, cfg.sceneSource())
	if err != nil {
		h.shutdownPlugins(len(h.opts.plugins))
		cancel()
		return err
	}

	h.mu.Lock()
	h.proxy = proxy
	h.restart.markUp(time.Now())
	h.mu.Unlock()
	return nil
}

// Stop shuts the workers down, cancels pending restarts and shuts plugins
// down in reverse order.
func (h *Host) Stop() error {
	h.mu.Lock()
	proxy := h.proxy
	cancel := h.cancel
	h.proxy = nil
	h.cancel = nil
	h.mu.Unlock()

	if proxy == nil {
		return ErrNotRunning
	}

	cancel()
	h.pending.Wait()

	err := proxy.Close()
	h.shutdownPlugins(len(h.opts.plugins))
	h.logger.Info("puppets stopped")
	return err
}

func (h *Host) shutdownPlugins(n int) {
	for i := n - 1; i >= 0; i-- {
		p := h.opts.plugins[i]
		ctx, cancel := context.WithTimeout(context.Background(), pluginShutdownTimeout)
		if err := p.Shutdown(ctx); err != nil {
			h.logger.Error("plugin shutdown error",
				log.String("plugin", p.Name()),
				log.Err(err),
			)
		}
		cancel()
	}
}

// Status returns the lifecycle state of the worker set.
func (h *Host) Status() State {
	return convertState(h.manager.State())
}

// Proxy returns the command proxy, or nil when the host is not started.
func (h *Host) Proxy() *ServerProxy {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.proxy
}

// Config returns a copy of the active configuration.
func (h *Host) Config() Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

// Reload validates cfg and makes it the active configuration. Running
// workers are not restarted; the new settings apply at the next set up.
// StartTimeout is fixed when the host is created.
func (h *Host) Reload(cfg Config) error {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := h.manager.Reconfigure(cfg.managerConfig()); err != nil {
		return err
	}
	h.mu.Lock()
	h.config = cfg
	h.restart.setInitial(cfg.RestartDelay)
	h.mu.Unlock()
	h.logger.Info("configuration reloaded",
		log.Duration("alive_interval", cfg.AliveInterval),
		log.String("forward_output", cfg.ForwardOutput),
		log.String("debug_puppet", cfg.DebugPuppet),
	)
	return nil
}
