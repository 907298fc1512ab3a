package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	PuppetPath      string            `toml:"puppet_path"`
	WorkingDir      string            `toml:"working_dir"`
	Roles           string            `toml:"roles"`
	CustomArgs      []string          `toml:"custom_args"`
	ImportPaths     []string          `toml:"import_paths"`
	FileMapping     string            `toml:"file_mapping"`
	AliveInterval   string            `toml:"alive_interval"`
	StartTimeout    string            `toml:"start_timeout"`
	ConnectTimeout  string            `toml:"connect_timeout"`
	ForwardOutput   string            `toml:"forward_output"`
	DebugPuppet     string            `toml:"debug_puppet"`
	SocketDir       string            `toml:"socket_dir"`
	RenderBackend   string            `toml:"render_backend"`
	UsePTY          *bool             `toml:"use_pty"`
	RestartAttempts *int              `toml:"restart_attempts"`
	Env             map[string]string `toml:"env"`
	LogLevel        string            `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.puppetlink/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".puppetlink", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("puppet-path", fc.PuppetPath, &cfg.PuppetPath)
	s.setString("working-dir", fc.WorkingDir, &cfg.WorkingDir)
	s.setString("roles", fc.Roles, &cfg.Roles)
	s.setString("file-mapping", fc.FileMapping, &cfg.FileMapping)
	s.setString("forward-output", fc.ForwardOutput, &cfg.ForwardOutput)
	s.setString("debug-puppet", fc.DebugPuppet, &cfg.DebugPuppet)
	s.setString("socket-dir", fc.SocketDir, &cfg.SocketDir)
	s.setString("render-backend", fc.RenderBackend, &cfg.RenderBackend)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setStrings("custom-args", fc.CustomArgs, &cfg.CustomArgs)
	s.setStrings("import-path", fc.ImportPaths, &cfg.ImportPaths)

	if err := s.setDuration("alive-interval", fc.AliveInterval, &cfg.AliveInterval); err != nil {
		return err
	}
	if err := s.setDuration("start-timeout", fc.StartTimeout, &cfg.StartTimeout); err != nil {
		return err
	}
	if err := s.setDuration("connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout); err != nil {
		return err
	}

	s.setBool("use-pty", fc.UsePTY, &cfg.UsePTY)
	s.setIntPtr("restart-attempts", fc.RestartAttempts, &cfg.RestartAttempts)

	if len(fc.Env) > 0 {
		merged := make(map[string]string, len(cfg.Env)+len(fc.Env))
		for k, v := range fc.Env {
			merged[k] = v
		}
		// values already present came from the command line
		for k, v := range cfg.Env {
			merged[k] = v
		}
		cfg.Env = merged
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
