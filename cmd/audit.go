// File: cmd/audit.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reqini/catalogo-indumentaria-sub000/internal/reporting"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/store"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run the full-surface audit once and print the report.",
	Long: `Probes every storefront subsystem (home, product, cart, checkout, payment,
post-payment, shipping, admin) concurrently and prints the rolled-up audit
report as markdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices(cmd.Context(), loadedConfig(), store.Open)
		if err != nil {
			return err
		}
		defer svc.Close()

		output, _ := cmd.Flags().GetString("output")
		fix, _ := cmd.Flags().GetBool("fix")

		w, err := reporting.OpenOutput(output)
		if err != nil {
			return err
		}
		defer w.Close()

		return runAudit(cmd.Context(), svc, w, fix)
	},
}

// runAudit is the testable core of the audit command.
func runAudit(ctx context.Context, svc *services, w io.Writer, fix bool) error {
	report := svc.auditor.RunFullAudit(ctx)
	if fix {
		svc.auditor.ApplyAutoFixes(report)
	}
	if _, err := io.WriteString(w, reporting.FullAudit(report)); err != nil {
		return fmt.Errorf("failed to write audit report: %w", err)
	}
	return nil
}

func init() {
	auditCmd.Flags().StringP("output", "o", "stdout", "write the report to a file instead of stdout")
	auditCmd.Flags().Bool("fix", false, "attempt automatic fixes for auto-fixable findings")
	rootCmd.AddCommand(auditCmd)
}
