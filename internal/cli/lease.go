package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/example/fleet/internal/core/lease"
	"github.com/example/fleet/internal/wire"
)

var leaseCmd = &cobra.Command{
	Use:   "lease",
	Short: "Inspect and reclaim work item leases",
}

var leaseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active leases",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		staleOnly, _ := cmd.Flags().GetBool("stale")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if timeout <= 0 {
			timeout = wire.LeaseTimeout()
		}

		items, err := wire.LeaseService().ListLeases(ctx, staleOnly, timeout)
		if err != nil {
			return fmt.Errorf("failed to list leases: %w", err)
		}

		if len(items) == 0 {
			if staleOnly {
				fmt.Println("No stale leases.")
			} else {
				fmt.Println("No active leases.")
			}
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Item", "Agent", "Assigned At", "Last Heartbeat", "State"})
		for _, item := range items {
			heartbeat := item.LastHeartbeatAt
			if heartbeat == "" {
				heartbeat = color.New(color.FgRed).Sprint("(none)")
			}
			tw.AppendRow(table.Row{
				item.Key(), item.AssignedTo, item.AssignedAt, heartbeat,
				leaseState(item.LastHeartbeatAt, timeout),
			})
		}
		tw.Render()
		return nil
	},
}

var leaseSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Release stale leases back to the backlog",
	Long: `Release every lease whose heartbeat is older than the timeout. With
--every the sweep repeats on that interval until interrupted, which is the
intended deployment: one sweeper per database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		timeout, _ := cmd.Flags().GetDuration("timeout")
		every, _ := cmd.Flags().GetDuration("every")

		sweep := func() error {
			count, err := wire.LeaseService().ReleaseStale(ctx, timeout)
			if err != nil {
				return fmt.Errorf("failed to sweep leases: %w", err)
			}
			if count > 0 {
				fmt.Printf("✓ Released %d stale lease(s)\n", count)
			} else {
				fmt.Println("No stale leases.")
			}
			return nil
		}

		if err := sweep(); err != nil {
			return err
		}
		if every <= 0 {
			return nil
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-sigCh:
				fmt.Println("Sweeper stopped.")
				return nil
			case <-ticker.C:
				if err := sweep(); err != nil {
					return err
				}
			}
		}
	},
}

var leaseReleaseAgentCmd = &cobra.Command{
	Use:   "release-agent [agent-id]",
	Short: "Force-release every lease held by an agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		count, err := wire.LeaseService().ReleaseAgent(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to release agent leases: %w", err)
		}
		fmt.Printf("✓ Released %d lease(s) held by %s\n", count, args[0])
		return nil
	},
}

// leaseState renders the staleness of one lease from its stored heartbeat.
func leaseState(lastHeartbeat string, timeout time.Duration) string {
	var last *time.Time
	if ts, err := time.Parse(time.RFC3339, lastHeartbeat); err == nil {
		last = &ts
	}
	if lease.IsStale(last, timeout, time.Now()) {
		return color.New(color.FgRed).Sprint("stale")
	}
	return color.New(color.FgGreen).Sprint("live")
}

func init() {
	leaseListCmd.Flags().Bool("stale", false, "Only leases past the heartbeat timeout")
	leaseListCmd.Flags().Duration("timeout", 0, "Staleness timeout override (0 = configured)")
	leaseSweepCmd.Flags().Duration("timeout", 0, "Staleness timeout override (0 = configured)")
	leaseSweepCmd.Flags().Duration("every", 0, "Repeat the sweep on this interval")

	leaseCmd.AddCommand(leaseListCmd)
	leaseCmd.AddCommand(leaseSweepCmd)
	leaseCmd.AddCommand(leaseReleaseAgentCmd)
}

// LeaseCmd returns the lease command for registration
func LeaseCmd() *cobra.Command {
	return leaseCmd
}
