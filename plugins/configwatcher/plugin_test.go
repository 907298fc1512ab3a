package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/puppetlink/internal/cliconfig"
	"github.com/bft-labs/puppetlink/pkg/log"
	"github.com/bft-labs/puppetlink/pkg/puppetlink"
)

type reloadRecorder struct {
	mu      sync.Mutex
	cfg     puppetlink.Config
	reloads []puppetlink.Config
}

func (r *reloadRecorder) current() puppetlink.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

func (r *reloadRecorder) reload(cfg puppetlink.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	r.reloads = append(r.reloads, cfg)
	return nil
}

func (r *reloadRecorder) snapshot() []puppetlink.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]puppetlink.Config(nil), r.reloads...)
}

func startPlugin(t *testing.T, cfg Config, path string, rec *reloadRecorder) *Plugin {
	t.Helper()
	plugin := New(cfg)
	err := plugin.Initialize(context.Background(), puppetlink.PluginConfig{
		ConfigPath: path,
		Logger:     log.NewNoopLogger(),
		Current:    rec.current,
		Reload:     rec.reload,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() {
		if err := plugin.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	})
	return plugin
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPlugin_ReloadsLiveKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `puppet_path = "/opt/qt/bin/qml2puppet"`+"\n")

	base := puppetlink.DefaultConfig()
	base.PuppetPath = "/opt/qt/bin/qml2puppet"
	rec := &reloadRecorder{cfg: base}

	startPlugin(t, Config{DebounceDelay: 10 * time.Millisecond}, path, rec)

	writeFile(t, path, `puppet_path = "/elsewhere/qml2puppet"
alive_interval = "5s"
forward_output = "all"
debug_puppet = "render"
`)
	time.Sleep(300 * time.Millisecond)

	reloads := rec.snapshot()
	if len(reloads) == 0 {
		t.Fatal("expected a reload after the file changed")
	}
	got := reloads[len(reloads)-1]
	if got.AliveInterval != 5*time.Second {
		t.Errorf("AliveInterval = %v, want 5s", got.AliveInterval)
	}
	if got.ForwardOutput != "all" {
		t.Errorf("ForwardOutput = %q, want all", got.ForwardOutput)
	}
	if got.DebugPuppet != "render" {
		t.Errorf("DebugPuppet = %q, want render", got.DebugPuppet)
	}
	if got.PuppetPath != "/opt/qt/bin/qml2puppet" {
		t.Errorf("PuppetPath = %q, must not be reloaded", got.PuppetPath)
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "")

	rec := &reloadRecorder{cfg: puppetlink.DefaultConfig()}
	startPlugin(t, Config{DebounceDelay: 10 * time.Millisecond}, path, rec)

	writeFile(t, filepath.Join(dir, "other.toml"), `alive_interval = "1s"`)
	time.Sleep(200 * time.Millisecond)

	if n := len(rec.snapshot()); n != 0 {
		t.Errorf("reloads = %d, want 0", n)
	}
}

func TestPlugin_DisabledWithoutPath(t *testing.T) {
	rec := &reloadRecorder{}
	plugin := New(DefaultConfig())
	err := plugin.Initialize(context.Background(), puppetlink.PluginConfig{
		Logger:  log.NewNoopLogger(),
		Current: rec.current,
		Reload:  rec.reload,
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := plugin.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestApplyLiveKeys(t *testing.T) {
	cur := puppetlink.DefaultConfig()
	cur.ForwardOutput = "editor"

	tests := []struct {
		name        string
		fc          cliconfig.FileConfig
		pinned      map[string]bool
		wantChanged bool
		wantAlive   time.Duration
		wantForward string
	}{
		{
			name:        "no live keys",
			fc:          cliconfig.FileConfig{PuppetPath: "/x"},
			wantAlive:   cur.AliveInterval,
			wantForward: "editor",
		},
		{
			name:        "alive interval",
			fc:          cliconfig.FileConfig{AliveInterval: "2s"},
			wantChanged: true,
			wantAlive:   2 * time.Second,
			wantForward: "editor",
		},
		{
			name:        "pinned flag wins",
			fc:          cliconfig.FileConfig{AliveInterval: "2s", ForwardOutput: "all"},
			pinned:      map[string]bool{"alive-interval": true},
			wantChanged: true,
			wantAlive:   cur.AliveInterval,
			wantForward: "all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed, err := applyLiveKeys(cur, tt.fc, tt.pinned)
			if err != nil {
				t.Fatalf("applyLiveKeys() error = %v", err)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if got.AliveInterval != tt.wantAlive {
				t.Errorf("AliveInterval = %v, want %v", got.AliveInterval, tt.wantAlive)
			}
			if got.ForwardOutput != tt.wantForward {
				t.Errorf("ForwardOutput = %q, want %q", got.ForwardOutput, tt.wantForward)
			}
		})
	}

	if _, _, err := applyLiveKeys(cur, cliconfig.FileConfig{AliveInterval: "soon"}, nil); err == nil {
		t.Error("expected error for invalid duration")
	}
}
