package puppetlink

// Option configures optional behavior of a Host.
type Option func(*options)

// options holds the optional configuration for a Host.
type options struct {
	logger       Logger
	client       Client
	eventHandler EventHandler
	crashHandler func(CrashEvent)
	output       func(role, line string)
	prompter     DebugPrompter
	plugins      []Plugin
	configPath   string
}

func defaultOptions() options {
	return options{
		client: NopClient{},
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClient sets the receiver of inbound worker commands.
func WithClient(client Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithEventHandler sets a handler for host events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithCrashHandler is called after every crash of the worker set, before
// any restart.
func WithCrashHandler(fn func(CrashEvent)) Option {
	return func(o *options) {
		o.crashHandler = fn
	}
}

// WithOutputHandler receives forwarded worker output lines. Without it,
// forwarded lines are logged at info level.
func WithOutputHandler(fn func(role, line string)) Option {
	return func(o *options) {
		o.output = fn
	}
}

// WithPrompter replaces the console prompt used for debug-mode workers.
func WithPrompter(p DebugPrompter) Option {
	return func(o *options) {
		o.prompter = p
	}
}

// WithConfigPath records the configuration file the host was built from.
// Plugins such as configwatcher use it.
func WithConfigPath(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithPlugin registers a plugin to be initialized when the host starts.
// Plugins are initialized in registration order and shut down in reverse
// order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
