// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reqini/catalogo-indumentaria-sub000/internal/reporting"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the daily monitoring sequence now and print the report.",
	Long: `Executes the full daily sequence immediately: virtual-user batch, full
audit, auto-fix pass, metric checks, comparison against the previous
persisted report, and persistence of the new one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices(cmd.Context(), loadedConfig(), store.Open)
		if err != nil {
			return err
		}
		defer svc.Close()

		output, _ := cmd.Flags().GetString("output")
		w, err := reporting.OpenOutput(output)
		if err != nil {
			return err
		}
		defer w.Close()

		return runDailyReport(cmd.Context(), svc, w)
	},
}

// runDailyReport is the testable core of the report command.
func runDailyReport(ctx context.Context, svc *services, w io.Writer) error {
	report, err := svc.sched.RunNow(ctx)
	if err != nil {
		return fmt.Errorf("daily run failed: %w", err)
	}
	if _, err := io.WriteString(w, reporting.Daily(report)); err != nil {
		return fmt.Errorf("failed to write daily report: %w", err)
	}
	return nil
}

func init() {
	reportCmd.Flags().StringP("output", "o", "stdout", "write the report to a file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
