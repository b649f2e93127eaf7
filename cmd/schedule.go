// File: cmd/schedule.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/internal/fixregistry"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/store"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily scheduler until interrupted.",
	Long: `Starts the daily scheduler loop (firing at scheduler.hour local time,
catching up immediately after a missed run) and the log interceptor that
feeds runtime errors through the fix registry. Blocks until interrupted.`,
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
			// Runtime log interception is best-effort; the scheduler still runs.
			svc.logger.Warn("Log interceptor unavailable", zap.Error(err))
		} else if err := interceptor.Start(ctx); err != nil {
			svc.logger.Warn("Log interceptor failed to start", zap.Error(err))
		}

		svc.sched.Start(ctx)
		svc.logger.Info("Scheduler running", zap.Int("hour", cfg.Scheduler.Hour))

		<-ctx.Done()
		svc.logger.Info("Scheduler stopping")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
