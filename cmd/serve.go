// File: cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/internal/fixregistry"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/server"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the operator triage API.",
	Long: `Exposes the alert store, the escalation triage list, the latest
persisted report and Prometheus metrics over HTTP. Also runs the daily
scheduler and the log interceptor so a single process covers the whole
pipeline. Blocks until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := loadedConfig()

		svc, err := buildServices(ctx, cfg, store.Open)
		if err != nil {
			return err
		}
		defer svc.Close()

		registry := fixregistry.NewRegistry(svc.logger)
		interceptor, err := fixregistry.NewInterceptor(svc.logger, registry, svc.guardian, cfg.Logger.LogFile)
		if err != nil {
			svc.logger.Warn("Log interceptor unavailable", zap.Error(err))
		} else if err := interceptor.Start(ctx); err != nil {
			svc.logger.Warn("Log interceptor failed to start", zap.Error(err))
		}

		svc.sched.Start(ctx)

		srv := server.New(svc.logger, svc.guardian, svc.severe, svc.store, cfg.Server.Address)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
