package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "PUPPETLINK_"

// ApplyEnvConfig applies configuration from environment variables (PUPPETLINK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("puppet-path", os.Getenv(EnvPrefix+"PUPPET_PATH"), &cfg.PuppetPath)
	s.setString("working-dir", os.Getenv(EnvPrefix+"WORKING_DIR"), &cfg.WorkingDir)
	s.setString("roles", os.Getenv(EnvPrefix+"ROLES"), &cfg.Roles)
	s.setString("file-mapping", os.Getenv(EnvPrefix+"FILE_MAPPING"), &cfg.FileMapping)
	s.setString("forward-output", os.Getenv(EnvPrefix+"FORWARD_OUTPUT"), &cfg.ForwardOutput)
	s.setString("debug-puppet", os.Getenv(EnvPrefix+"DEBUG_PUPPET"), &cfg.DebugPuppet)
	s.setString("socket-dir", os.Getenv(EnvPrefix+"SOCKET_DIR"), &cfg.SocketDir)
	s.setString("render-backend", os.Getenv(EnvPrefix+"RENDER_BACKEND"), &cfg.RenderBackend)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)

	s.setStrings("custom-args", strings.Fields(os.Getenv(EnvPrefix+"CUSTOM_ARGS")), &cfg.CustomArgs)
	s.setStrings("import-path", splitList(os.Getenv(EnvPrefix+"IMPORT_PATHS")), &cfg.ImportPaths)

	if err := s.setDuration("alive-interval", os.Getenv(EnvPrefix+"ALIVE_INTERVAL"), &cfg.AliveInterval); err != nil {
		return err
	}
	if err := s.setDuration("start-timeout", os.Getenv(EnvPrefix+"START_TIMEOUT"), &cfg.StartTimeout); err != nil {
		return err
	}
	if err := s.setDuration("connect-timeout", os.Getenv(EnvPrefix+"CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("restart-attempts", os.Getenv(EnvPrefix+"RESTART_ATTEMPTS"), 0, &cfg.RestartAttempts); err != nil {
		return err
	}

	s.setBoolFromString("use-pty", os.Getenv(EnvPrefix+"USE_PTY"), &cfg.UsePTY)

	return nil
}

// splitList splits an OS path list, dropping empty entries.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range filepath.SplitList(v) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
