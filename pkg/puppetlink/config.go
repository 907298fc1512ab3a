package puppetlink

import (
	"fmt"
	"time"

	"github.com/bft-labs/puppetlink/internal/app"
	"github.com/bft-labs/puppetlink/internal/domain"
)

// Config holds the configuration of a Host.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// PuppetPath is the worker executable. Required.
	PuppetPath string

	// WorkingDir is the worker working directory and the base for
	// relative import paths.
	WorkingDir string

	// Roles are the workers to run. Defaults to editor, render, preview.
	Roles []Role

	// CustomArgs are passed to custom-mode roles instead of the socket
	// token and mode.
	CustomArgs []string

	ImportPaths []string
	FileMapping string

	// Env is overlaid on the worker environment.
	Env map[string]string

	// AliveInterval is the liveness window. Zero disables liveness checks.
	AliveInterval  time.Duration
	StartTimeout   time.Duration
	ConnectTimeout time.Duration

	// ForwardOutput and DebugPuppet select roles by name, comma separated,
	// or "all".
	ForwardOutput string
	DebugPuppet   string

	SocketDir     string
	RenderBackend string
	UsePTY        bool

	// RestartAttempts is how many consecutive crashes are recovered from.
	RestartAttempts int

	// RestartDelay is the first restart backoff.
	RestartDelay time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Roles:           domain.DefaultRoles(),
		AliveInterval:   app.DefaultAliveInterval,
		StartTimeout:    8 * time.Second,
		ConnectTimeout:  app.DefaultConnectTimeout,
		RestartAttempts: 3,
		RestartDelay:    app.DefaultBackoffInitial,
	}
}

// SetDefaults fills zero values that have a non-zero default.
func (c *Config) SetDefaults() {
	if len(c.Roles) == 0 {
		c.Roles = domain.DefaultRoles()
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = 8 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = app.DefaultConnectTimeout
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = app.DefaultBackoffInitial
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PuppetPath == "" {
		return fmt.Errorf("%w: puppet path is required", ErrInvalidConfig)
	}
	if c.AliveInterval < 0 {
		return fmt.Errorf("%w: alive interval must not be negative", ErrInvalidConfig)
	}
	if c.RestartAttempts < 0 {
		return fmt.Errorf("%w: restart attempts must not be negative", ErrInvalidConfig)
	}
	return c.managerConfig().Validate()
}

func (c Config) managerConfig() app.ManagerConfig {
	mc := app.DefaultManagerConfig()
	mc.Roles = c.Roles
	mc.Executable = c.PuppetPath
	mc.WorkingDir = c.WorkingDir
	mc.CustomArgs = c.CustomArgs
	mc.Env = c.Env
	mc.RenderBackend = c.RenderBackend
	mc.SocketDir = c.SocketDir
	mc.ConnectTimeout = c.ConnectTimeout
	mc.AliveInterval = c.AliveInterval
	mc.ForwardOutput = c.ForwardOutput
	mc.DebugPuppet = c.DebugPuppet
	mc.UsePTY = c.UsePTY
	return mc
}

func (c Config) sceneSource() app.SceneSource {
	return app.SceneSource{
		ImportPaths: app.CleanImportPaths(c.WorkingDir, c.ImportPaths),
		FileMapping: c.FileMapping,
	}
}
