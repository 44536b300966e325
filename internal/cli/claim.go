package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/fleet/internal/core/lease"
	"github.com/example/fleet/internal/ports/primary"
	"github.com/example/fleet/internal/wire"
)

var claimCmd = &cobra.Command{
	Use:   "claim [repository] [number]",
	Short: "Claim a work item lease",
	Long: `Claim the lease on a specific work item, or with no arguments claim
the highest-priority claimable item. Prints the claimed item on success;
exits zero with "nothing claimable" when the backlog is empty.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		agentID, _ := cmd.Flags().GetString("agent")
		if agentID == "" {
			return fmt.Errorf("--agent is required")
		}

		if len(args) == 0 {
			item, err := wire.LeaseService().ClaimHighestPriority(ctx, agentID)
			if err != nil {
				return fmt.Errorf("failed to claim: %w", err)
			}
			if item == nil {
				fmt.Println("Nothing claimable.")
				return nil
			}
			fmt.Printf("✓ Claimed %s (priority %.2f) for %s\n",
				item.Key(), item.Priority, agentID)
			if item.Data != "" {
				fmt.Println(item.Data)
			}
			return nil
		}

		if len(args) != 2 {
			return fmt.Errorf("expected both repository and number")
		}
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid issue number %q: %w", args[1], err)
		}

		claimed, err := wire.LeaseService().Claim(ctx, args[0], number, agentID)
		if err != nil {
			return fmt.Errorf("failed to claim: %w", err)
		}
		if !claimed {
			fmt.Printf("%s %s is held by another agent\n",
				color.New(color.FgYellow).Sprint("✗"),
				primary.ItemKey(args[0], number))
			return nil
		}
		fmt.Printf("✓ Claimed %s for %s\n", primary.ItemKey(args[0], number), agentID)
		return nil
	},
}

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat [repository] [number]",
	Short: "Renew a held lease",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		agentID, _ := cmd.Flags().GetString("agent")
		if agentID == "" {
			return fmt.Errorf("--agent is required")
		}
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid issue number %q: %w", args[1], err)
		}

		ok, err := wire.LeaseService().Heartbeat(ctx, args[0], number, agentID)
		if err != nil {
			return fmt.Errorf("failed to heartbeat: %w", err)
		}
		if !ok {
			fmt.Printf("%s lease on %s was lost\n",
				color.New(color.FgRed).Sprint("✗"),
				primary.ItemKey(args[0], number))
			return nil
		}
		fmt.Printf("✓ Renewed lease on %s\n", primary.ItemKey(args[0], number))
		return nil
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release [repository] [number]",
	Short: "Release a held lease with an outcome",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		agentID, _ := cmd.Flags().GetString("agent")
		if agentID == "" {
			return fmt.Errorf("--agent is required")
		}
		outcomeStr, _ := cmd.Flags().GetString("outcome")
		outcome, err := lease.Parse(outcomeStr)
		if err != nil {
			return fmt.Errorf("invalid outcome: %w", err)
		}
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid issue number %q: %w", args[1], err)
		}

		if err := wire.LeaseService().Release(ctx, args[0], number, agentID, outcome); err != nil {
			return fmt.Errorf("failed to release: %w", err)
		}
		fmt.Printf("✓ Released %s as %s\n", primary.ItemKey(args[0], number), outcome)
		return nil
	},
}

func init() {
	claimCmd.Flags().String("agent", "", "Agent ID claiming the lease")
	heartbeatCmd.Flags().String("agent", "", "Agent ID holding the lease")
	releaseCmd.Flags().String("agent", "", "Agent ID holding the lease")
	releaseCmd.Flags().String("outcome", "completed", "Release outcome: available, completed, or failed")
}

// ClaimCmd returns the claim command for registration
func ClaimCmd() *cobra.Command {
	return claimCmd
}

// HeartbeatCmd returns the heartbeat command for registration
func HeartbeatCmd() *cobra.Command {
	return heartbeatCmd
}

// ReleaseCmd returns the release command for registration
func ReleaseCmd() *cobra.Command {
	return releaseCmd
}
