package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/puppetlink/internal/domain"
)

// Config holds CLI configuration for puppetlink.
type Config struct {
	PuppetPath string
	WorkingDir string

	// Roles is a comma separated role list, e.g. "editor,render,preview".
	Roles       string
	CustomArgs  []string
	ImportPaths []string
	FileMapping string

	AliveInterval  time.Duration
	StartTimeout   time.Duration
	ConnectTimeout time.Duration

	ForwardOutput string
	DebugPuppet   string

	SocketDir     string
	RenderBackend string
	UsePTY        bool

	RestartAttempts int
	Env             map[string]string
	LogLevel        string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Roles:           "editor,render,preview",
		AliveInterval:   30 * time.Second,
		StartTimeout:    8 * time.Second,
		ConnectTimeout:  10 * time.Second,
		RestartAttempts: 3,
		LogLevel:        "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.PuppetPath == "" {
		return fmt.Errorf("puppet-path is required")
	}

	roles := domain.ParseRoles(c.Roles)
	if len(roles) == 0 {
		return fmt.Errorf("at least one role is required")
	}
	for _, r := range roles {
		if r.IsCustom() && len(c.CustomArgs) == 0 {
			return fmt.Errorf("role %q needs custom-args", r.Name)
		}
	}

	if c.AliveInterval < 0 {
		return fmt.Errorf("alive interval must not be negative")
	}
	if c.StartTimeout <= 0 {
		return fmt.Errorf("start timeout must be positive")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.RestartAttempts < 0 {
		return fmt.Errorf("restart attempts must not be negative")
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.RenderBackend = strings.ToLower(strings.TrimSpace(c.RenderBackend))

	return nil
}

// ParsedRoles returns the configured roles.
func (c Config) ParsedRoles() []domain.Role {
	return domain.ParseRoles(c.Roles)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setIntPtr sets an int value from a pointer if not nil and flag not changed.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if it is
// at least min. Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, min int, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < min {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
