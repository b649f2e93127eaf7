// File: cmd/monitor.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reqini/catalogo-indumentaria-sub000/internal/reporting"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/store"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run one continuous-QA cycle and print the result.",
	Long: `Runs a virtual-user batch and the metric checks (load time, filters,
images, variants, routes) in parallel, then probes the key endpoints for
behavioral changes. With --checkout only the checkout flow is probed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildServices(cmd.Context(), loadedConfig(), store.Open)
		if err != nil {
			return err
		}
		defer svc.Close()

		output, _ := cmd.Flags().GetString("output")
		checkoutOnly, _ := cmd.Flags().GetBool("checkout")

		w, err := reporting.OpenOutput(output)
		if err != nil {
			return err
		}
		defer w.Close()

		return runMonitor(cmd.Context(), svc, w, checkoutOnly)
	},
}

// runMonitor is the testable core of the monitor command.
func runMonitor(ctx context.Context, svc *services, w io.Writer, checkoutOnly bool) error {
	var doc string
	if checkoutOnly {
		doc = reporting.CheckoutMonitor(svc.auditor.RunCheckoutMonitor(ctx))
	} else {
		doc = reporting.ContinuousQA(svc.qa.RunCycle(ctx))
	}
	if _, err := io.WriteString(w, doc); err != nil {
		return fmt.Errorf("failed to write monitor report: %w", err)
	}
	return nil
}

func init() {
	monitorCmd.Flags().Bool("checkout", false, "probe only the checkout flow")
	monitorCmd.Flags().StringP("output", "o", "stdout", "write the report to a file instead of stdout")
	rootCmd.AddCommand(monitorCmd)
}
