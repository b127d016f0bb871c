package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/waflow/internal/config"
	"github.com/xkilldash9x/waflow/internal/observability"
	"github.com/xkilldash9x/waflow/internal/server"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP trigger boundary",
		Long: `Starts the HTTP API that accepts send and delete batches. Requests are
acknowledged immediately; batches run on background workers and report
per-recipient outcomes to the history log.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// Re-resolve the config so the bound --addr flag takes effect.
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			comp := buildComponents(cfg, logger)
			handler := server.NewHandler(comp.Runner, comp.History, comp.Contacts, comp.Files, logger)
			srv := server.New(cfg.Server, handler, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv.Start()
			<-ctx.Done()

			logger.Info("Shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	serveCmd.Flags().String("addr", ":8080", "listen address for the HTTP API")
	return serveCmd
}
