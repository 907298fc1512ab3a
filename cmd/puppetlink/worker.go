package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/puppetlink/internal/cliconfig"
	"github.com/bft-labs/puppetlink/internal/stubworker"
	"github.com/bft-labs/puppetlink/pkg/log"
)

// newWorkerCommand runs the built-in stub puppet. The host invokes it as
// "worker <socket> <mode> --rhi-backend <name>".
func newWorkerCommand() *cobra.Command {
	var backend string
	var alive time.Duration

	cmd := &cobra.Command{
		Use:    "worker <socket> <mode>",
		Short:  "Run a stub puppet that answers the host without rendering",
		Args:   cobra.ExactArgs(2),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := cliconfig.Logger().With().Str("mode", args[1]).Logger()
			logger.Debug().Str("rhi_backend", backend).Msg("stub puppet starting")

			return stubworker.Run(ctx, args[0], args[1], stubworker.Options{
				AliveInterval: alive,
				Logger:        log.NewZerologAdapterWithLogger(logger),
			})
		},
	}
	cmd.SetOut(os.Stderr)
	cmd.Flags().StringVar(&backend, "rhi-backend", "", "rendering backend (ignored)")
	cmd.Flags().DurationVar(&alive, "alive-interval", stubworker.DefaultAliveInterval, "heartbeat period, negative disables")
	return cmd
}
