package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/example/fleet/internal/wire"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Inspect and reset the resource budget ledger",
}

var budgetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the budget report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		asJSON, _ := cmd.Flags().GetBool("json")

		report, err := wire.BudgetService().Report(ctx)
		if err != nil {
			return fmt.Errorf("failed to build budget report: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		weekly := fmt.Sprintf("%d / %d tokens (%.1f%%)",
			report.WeeklyUsed, report.WeeklyBudget, report.WeeklyPercent)
		if report.WeeklyRemaining == 0 {
			weekly = color.New(color.FgRed).Sprint(weekly)
		} else if report.WeeklyPercent >= 80 {
			weekly = color.New(color.FgYellow).Sprint(weekly)
		}
		fmt.Printf("Weekly budget: %s\n", weekly)
		fmt.Printf("Totals:        %d tokens, %d issues, %d PRs\n\n",
			report.TotalTokens, report.TotalIssues, report.TotalPRs)

		if len(report.PerRepo) > 0 {
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Repository", "Tokens", "Issues"})
			for _, name := range sortedKeys(report.PerRepo) {
				c := report.PerRepo[name]
				tw.AppendRow(table.Row{name, c.Tokens, c.Issues})
			}
			tw.Render()
			fmt.Println()
		}

		if len(report.PerLanguage) > 0 {
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Language", "Tokens", "Issues"})
			for _, name := range sortedKeys(report.PerLanguage) {
				c := report.PerLanguage[name]
				tw.AppendRow(table.Row{name, c.Tokens, c.Issues})
			}
			tw.Render()
		}
		return nil
	},
}

var budgetResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset budget counters",
	Long: `Reset one scope of the ledger: --weekly zeroes weekly usage and stamps
the current ISO week, --repo and --language clear one key's counters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		weekly, _ := cmd.Flags().GetBool("weekly")
		repository, _ := cmd.Flags().GetString("repo")
		language, _ := cmd.Flags().GetString("language")

		switch {
		case weekly:
			if err := wire.BudgetService().ResetWeekly(ctx); err != nil {
				return fmt.Errorf("failed to reset weekly budget: %w", err)
			}
			fmt.Println("✓ Weekly budget reset")
		case repository != "":
			if err := wire.BudgetService().ResetRepo(ctx, repository); err != nil {
				return fmt.Errorf("failed to reset repo budget: %w", err)
			}
			fmt.Printf("✓ Reset budget counters for %s\n", repository)
		case language != "":
			if err := wire.BudgetService().ResetLanguage(ctx, language); err != nil {
				return fmt.Errorf("failed to reset language budget: %w", err)
			}
			fmt.Printf("✓ Reset budget counters for language %s\n", language)
		default:
			return fmt.Errorf("specify one of --weekly, --repo, or --language")
		}
		return nil
	},
}

func init() {
	budgetShowCmd.Flags().Bool("json", false, "Emit the report as JSON")
	budgetResetCmd.Flags().Bool("weekly", false, "Reset the weekly counter")
	budgetResetCmd.Flags().String("repo", "", "Reset one repository's counters")
	budgetResetCmd.Flags().String("language", "", "Reset one language's counters")

	budgetCmd.AddCommand(budgetShowCmd)
	budgetCmd.AddCommand(budgetResetCmd)
}

// BudgetCmd returns the budget command for registration
func BudgetCmd() *cobra.Command {
	return budgetCmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
