package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
)

// shutdownSignals ends serve and worker.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve records, health and metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			server, err := cliCtx.Backend.Server()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			cliCtx.Logger.Info("shutting down http server")
			if err := server.Stop(context.Background()); err != nil {
				return err
			}
			return <-errCh
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume ingest requests from Kafka and index them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()

			consumer, err := cliCtx.Backend.Worker(ctx)
			if err != nil {
				return err
			}
			if err := consumer.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			cliCtx.Logger.Info("shutting down ingest worker")
			if err := consumer.Close(); err != nil {
				return err
			}
			stats := consumer.Stats()
			cliCtx.Logger.Info("ingest worker stopped",
				logging.Int64("processed", stats.Processed),
				logging.Int64("failed", stats.Failed),
				logging.Int64("dead_lettered", stats.DeadLettered))
			return nil
		},
	}
}

//Personal.AI order the ending
