package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/fleet/internal/cli"
	"github.com/example/fleet/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "fleet",
		Short:   "Fleet - work distribution for autonomous fix agents",
		Version: version.String(),
		Long: `Fleet coordinates concurrent fix agents pulling work items from a shared
backlog. It owns the lease state machine, the budget ledger, and the
admission controller; agents claim, heartbeat, process, and release.`,
	}

	// Add subcommands
	rootCmd.AddCommand(cli.ItemCmd())
	rootCmd.AddCommand(cli.ClaimCmd())
	rootCmd.AddCommand(cli.HeartbeatCmd())
	rootCmd.AddCommand(cli.ReleaseCmd())
	rootCmd.AddCommand(cli.LeaseCmd())
	rootCmd.AddCommand(cli.BudgetCmd())
	rootCmd.AddCommand(cli.RunCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
