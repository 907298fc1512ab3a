package cliconfig

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	list := func(parts ...string) string {
		out := ""
		for i, p := range parts {
			if i > 0 {
				out += string(os.PathListSeparator)
			}
			out += p
		}
		return out
	}

	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"PUPPETLINK_PUPPET_PATH":    "/env/puppet",
				"PUPPETLINK_ROLES":          "editor",
				"PUPPETLINK_ALIVE_INTERVAL": "10s",
				"PUPPETLINK_USE_PTY":        "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				PuppetPath:    "/env/puppet",
				Roles:         "editor",
				AliveInterval: 10 * time.Second,
				UsePTY:        true,
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"PUPPETLINK_PUPPET_PATH": "/env/puppet",
				"PUPPETLINK_ROLES":       "render",
			},
			changed: map[string]bool{"puppet-path": true},
			initial: Config{
				PuppetPath: "/flag/puppet",
			},
			expected: Config{
				PuppetPath: "/flag/puppet",
				Roles:      "render",
			},
			wantErr: false,
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"PUPPETLINK_START_TIMEOUT": "not-a-duration",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"PUPPETLINK_RESTART_ATTEMPTS": "not-a-number",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
		{
			name: "restart attempts accepts zero",
			envVars: map[string]string{
				"PUPPETLINK_RESTART_ATTEMPTS": "0",
			},
			changed:  map[string]bool{},
			initial:  Config{RestartAttempts: 3},
			expected: Config{RestartAttempts: 0},
			wantErr:  false,
		},
		{
			name: "handles bool '1' as true",
			envVars: map[string]string{
				"PUPPETLINK_USE_PTY": "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				UsePTY: true,
			},
			wantErr: false,
		},
		{
			name: "handles bool 'false' as false",
			envVars: map[string]string{
				"PUPPETLINK_USE_PTY": "false",
			},
			changed: map[string]bool{},
			initial: Config{UsePTY: true},
			expected: Config{
				UsePTY: false,
			},
			wantErr: false,
		},
		{
			name: "handles all field types correctly",
			envVars: map[string]string{
				"PUPPETLINK_PUPPET_PATH":      "/p",
				"PUPPETLINK_WORKING_DIR":      "/w",
				"PUPPETLINK_ROLES":            "editor,render",
				"PUPPETLINK_CUSTOM_ARGS":      "-x  -y",
				"PUPPETLINK_IMPORT_PATHS":     list("/i1", "", "/i2"),
				"PUPPETLINK_FILE_MAPPING":     "qrc:/=/w",
				"PUPPETLINK_ALIVE_INTERVAL":   "1m",
				"PUPPETLINK_START_TIMEOUT":    "2s",
				"PUPPETLINK_CONNECT_TIMEOUT":  "3s",
				"PUPPETLINK_FORWARD_OUTPUT":   "all",
				"PUPPETLINK_DEBUG_PUPPET":     "editor",
				"PUPPETLINK_SOCKET_DIR":       "/s",
				"PUPPETLINK_RENDER_BACKEND":   "vulkan",
				"PUPPETLINK_USE_PTY":          "1",
				"PUPPETLINK_RESTART_ATTEMPTS": "7",
				"PUPPETLINK_LOG_LEVEL":        "warn",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				PuppetPath:      "/p",
				WorkingDir:      "/w",
				Roles:           "editor,render",
				CustomArgs:      []string{"-x", "-y"},
				ImportPaths:     []string{"/i1", "/i2"},
				FileMapping:     "qrc:/=/w",
				AliveInterval:   time.Minute,
				StartTimeout:    2 * time.Second,
				ConnectTimeout:  3 * time.Second,
				ForwardOutput:   "all",
				DebugPuppet:     "editor",
				SocketDir:       "/s",
				RenderBackend:   "vulkan",
				UsePTY:          true,
				RestartAttempts: 7,
				LogLevel:        "warn",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyEnvConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyEnvConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

// Integration test: precedence order (CLI > Env > File)
func TestConfigPrecedence(t *testing.T) {
	trueVal := true

	fileConf := FileConfig{
		PuppetPath:    "/file/puppet",
		Roles:         "editor",
		AliveInterval: "5s",
		UsePTY:        &trueVal,
	}

	t.Setenv("PUPPETLINK_PUPPET_PATH", "/env/puppet")
	t.Setenv("PUPPETLINK_ROLES", "render")
	t.Setenv("PUPPETLINK_SOCKET_DIR", "/env/sock")

	// Simulate CLI flags
	changed := map[string]bool{
		"puppet-path": true,
	}

	cfg := Config{
		PuppetPath: "/cli/puppet",
	}

	if err := ApplyFileConfig(&cfg, fileConf, changed); err != nil {
		t.Fatalf("ApplyFileConfig failed: %v", err)
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		t.Fatalf("ApplyEnvConfig failed: %v", err)
	}

	if cfg.PuppetPath != "/cli/puppet" {
		t.Errorf("PuppetPath = %v, want /cli/puppet (CLI should win)", cfg.PuppetPath)
	}
	if cfg.Roles != "render" {
		t.Errorf("Roles = %v, want render (env should override file)", cfg.Roles)
	}
	if cfg.SocketDir != "/env/sock" {
		t.Errorf("SocketDir = %v, want /env/sock (env should set)", cfg.SocketDir)
	}
	if cfg.AliveInterval != 5*time.Second {
		t.Errorf("AliveInterval = %v, want 5s (file should set)", cfg.AliveInterval)
	}
	if cfg.UsePTY != true {
		t.Errorf("UsePTY = %v, want true (file should set)", cfg.UsePTY)
	}
}
