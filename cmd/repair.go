// File: cmd/repair.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/internal/observability"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/selfrepair"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Scan the storefront source tree for repairable issues.",
	Long: `Walks the configured source tree looking for broken relative imports and
other repairable issues. Detection only by default; --apply attempts each
auto-fixable repair, always taking a backup first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadedConfig()
		logger := observability.GetLogger()

		repairer, err := selfrepair.New(logger, cfg.Repair.BackupDir)
		if err != nil {
			return fmt.Errorf("failed to initialize self-repair: %w", err)
		}

		root, _ := cmd.Flags().GetString("root")
		if root == "" {
			root = cfg.Repair.SourceRoot
		}
		apply, _ := cmd.Flags().GetBool("apply")

		return runRepair(cmd.Context(), logger, repairer, cmd.OutOrStdout(), root, apply)
	},
}

// runRepair is the testable core of the repair command.
func runRepair(ctx context.Context, logger *zap.Logger, repairer *selfrepair.SelfRepair, w io.Writer, root string, apply bool) error {
	issues, err := repairer.DetectIssues(root)
	if err != nil {
		return fmt.Errorf("source scan failed: %w", err)
	}

	fmt.Fprintf(w, "Se detectaron %d problemas en %s\n", len(issues), root)
	for _, issue := range issues {
		fmt.Fprintf(w, "- [%s] %s:%d %s\n", issue.Severity, issue.File, issue.Line, issue.Description)
		if !apply {
			continue
		}
		result := repairer.AttemptRepair(issue)
		status := "sin reparar"
		if result.Repaired {
			status = "reparado"
		}
		fmt.Fprintf(w, "  %s: %s\n", status, result.Message)
		logger.Info("Repair attempted",
			zap.String("file", issue.File),
			zap.Bool("repaired", result.Repaired),
			zap.String("backup", result.BackupPath))
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func init() {
	repairCmd.Flags().String("root", "", "source tree to scan (defaults to repair.source_root)")
	repairCmd.Flags().Bool("apply", false, "attempt the auto-fixable repairs instead of only reporting them")
	rootCmd.AddCommand(repairCmd)
}
