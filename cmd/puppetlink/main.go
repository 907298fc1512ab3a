package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/puppetlink/internal/cliconfig"
	"github.com/bft-labs/puppetlink/pkg/log"
	"github.com/bft-labs/puppetlink/pkg/puppetlink"
	"github.com/bft-labs/puppetlink/plugins/configwatcher"
	"github.com/bft-labs/puppetlink/plugins/socketcleanup"
)

const helpDescription = `
Run QML puppet workers for a project and keep them connected.

Highlights:
  - Starts an editor, render and preview worker and waits for each to connect.
  - Tears all workers down together when one crashes or stops answering.
  - Restarts the set with backoff; configure via file, env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  puppetlink --puppet-path /opt/qt/bin/qml2puppet --working-dir ./MyProject --scene MyProject/Main.qml
  puppetlink --config $HOME/.puppetlink/config.toml --debug-puppet render
  puppetlink --puppet-path "$(which puppetlink)" --custom-args worker --roles editor
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath, scene string

	logger := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "puppetlink",
		Short:   "Run QML puppet workers and keep them connected",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			loaded := false
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				loaded = true
			}

			// PUPPETLINK_* override the file, flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cliconfig.LoadProjectInfo(&cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			cliconfig.SetLogLevel(cfg.LogLevel)
			logger = cliconfig.Logger()
			logger.Info().Interface("config", cfg).Msg("configuration")

			opts := []puppetlink.Option{
				puppetlink.WithLogger(log.NewZerologAdapterWithLogger(logger)),
				puppetlink.WithClient(&loggingClient{logger: logger}),
				socketcleanup.WithDefaultSocketCleanup(),
			}
			if loaded {
				opts = append(opts,
					puppetlink.WithConfigPath(cfgFile),
					configwatcher.WithConfigWatcher(configwatcher.Config{Pinned: changed}),
				)
			}

			gaveUp := make(chan struct{})
			var giveUpOnce sync.Once
			opts = append(opts, puppetlink.WithCrashHandler(func(ev puppetlink.CrashEvent) {
				if !ev.Restarting {
					giveUpOnce.Do(func() { close(gaveUp) })
				}
			}))

			host, err := puppetlink.New(cfg.HostConfig(), opts...)
			if err != nil {
				return fmt.Errorf("create host: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			if err := host.Start(ctx); err != nil {
				return fmt.Errorf("start puppets: %w", err)
			}

			if scene != "" {
				abs, err := filepath.Abs(scene)
				if err != nil {
					return err
				}
				if err := host.Proxy().CreateScene(puppetlink.CreateScene{FileURL: "file://" + filepath.ToSlash(abs)}); err != nil {
					logger.Error().Err(err).Msg("create scene")
				}
			}

			var runErr error
			select {
			case <-sigCh:
				logger.Info().Msg("received signal, stopping...")
			case <-gaveUp:
				runErr = fmt.Errorf("puppets crashed, restart attempts exhausted")
			}

			if err := host.Stop(); err != nil && runErr == nil {
				return fmt.Errorf("stop puppets: %w", err)
			}
			return runErr
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.puppetlink/config.toml)")
	root.Flags().StringVar(&scene, "scene", "", "QML file to load once the puppets are connected")
	root.Flags().StringVar(&cfg.PuppetPath, "puppet-path", cfg.PuppetPath, "puppet worker executable")
	root.Flags().StringVar(&cfg.WorkingDir, "working-dir", cfg.WorkingDir, "project directory (defaults to the current directory)")
	root.Flags().StringVar(&cfg.Roles, "roles", cfg.Roles, "comma separated worker roles")
	root.Flags().StringSliceVar(&cfg.CustomArgs, "custom-args", cfg.CustomArgs, "arguments for custom-mode roles")
	root.Flags().StringSliceVar(&cfg.ImportPaths, "import-path", cfg.ImportPaths, "additional QML import path (repeatable)")
	root.Flags().StringVar(&cfg.FileMapping, "file-mapping", cfg.FileMapping, "resource path mapping passed to the workers")
	root.Flags().StringToStringVar(&cfg.Env, "env", cfg.Env, "extra worker environment KEY=VALUE")

	root.Flags().DurationVar(&cfg.AliveInterval, "alive-interval", cfg.AliveInterval, "liveness window, 0 disables")
	root.Flags().DurationVar(&cfg.StartTimeout, "start-timeout", cfg.StartTimeout, "time allowed for a worker process to start")
	root.Flags().DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "time allowed for a worker to connect back")
	root.Flags().IntVar(&cfg.RestartAttempts, "restart-attempts", cfg.RestartAttempts, "consecutive crashes to recover from")

	root.Flags().StringVar(&cfg.ForwardOutput, "forward-output", cfg.ForwardOutput, "roles whose output is forwarded (comma separated or all)")
	root.Flags().StringVar(&cfg.DebugPuppet, "debug-puppet", cfg.DebugPuppet, "roles to start in debug mode (comma separated or all)")
	root.Flags().StringVar(&cfg.SocketDir, "socket-dir", cfg.SocketDir, "directory for the local sockets")
	root.Flags().StringVar(&cfg.RenderBackend, "render-backend", cfg.RenderBackend, "rendering backend passed to the workers")
	root.Flags().BoolVar(&cfg.UsePTY, "use-pty", cfg.UsePTY, "attach forwarded workers to a pseudo terminal")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newWorkerCommand())

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("puppetlink")
		os.Exit(1)
	}
}
