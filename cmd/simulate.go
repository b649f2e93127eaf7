// File: cmd/simulate.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reqini/catalogo-indumentaria-sub000/internal/reporting"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/store"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a batch of virtual users against the storefront.",
	Long: `Launches N concurrent virtual users, roughly 60% running the purchase flow
and the rest the admin flow, and prints the per-actor results plus any step
failure that affected a strict majority of users.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices(cmd.Context(), loadedConfig(), store.Open)
		if err != nil {
			return err
		}
		defer svc.Close()

		users, _ := cmd.Flags().GetInt("users")
		if users < 1 {
			users = svc.cfg.Simulation.Users
		}
		output, _ := cmd.Flags().GetString("output")

		w, err := reporting.OpenOutput(output)
		if err != nil {
			return err
		}
		defer w.Close()

		return runSimulate(cmd.Context(), svc, w, users)
	},
}

// runSimulate is the testable core of the simulate command.
func runSimulate(ctx context.Context, svc *services, w io.Writer, users int) error {
	batch := svc.engine.RunRepetitiveAudit(ctx, users)
	if _, err := io.WriteString(w, reporting.ActorBatch(batch)); err != nil {
		return fmt.Errorf("failed to write simulation report: %w", err)
	}
	return nil
}

func init() {
	simulateCmd.Flags().IntP("users", "u", 0, "number of virtual users (defaults to simulation.users)")
	simulateCmd.Flags().StringP("output", "o", "stdout", "write the report to a file instead of stdout")
	rootCmd.AddCommand(simulateCmd)
}
