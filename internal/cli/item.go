package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/example/fleet/internal/ports/primary"
	"github.com/example/fleet/internal/wire"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage backlog work items",
	Long:  "Add, list, show, and remove work items in the shared backlog",
}

var itemAddCmd = &cobra.Command{
	Use:   "add [repository] [number]",
	Short: "Add or update a work item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid issue number %q: %w", args[1], err)
		}

		title, _ := cmd.Flags().GetString("title")
		category, _ := cmd.Flags().GetString("category")
		complexity, _ := cmd.Flags().GetInt("complexity")
		solvability, _ := cmd.Flags().GetFloat64("solvability")
		priority, _ := cmd.Flags().GetFloat64("priority")
		data, _ := cmd.Flags().GetString("data")

		item, err := wire.WorkItemService().Add(ctx, primary.AddWorkItemRequest{
			Repository:  args[0],
			Number:      number,
			Title:       title,
			Category:    category,
			Complexity:  complexity,
			Solvability: solvability,
			Priority:    priority,
			Data:        data,
		})
		if err != nil {
			return fmt.Errorf("failed to add work item: %w", err)
		}

		fmt.Printf("✓ Added %s: %s\n", item.Key(), item.Title)
		fmt.Printf("  Priority: %.2f  Complexity: %d  Solvability: %.2f\n",
			item.Priority, item.Complexity, item.Solvability)
		return nil
	},
}

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List work items by descending priority",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repository, _ := cmd.Flags().GetString("repo")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := wire.WorkItemService().List(ctx, primary.WorkItemFilters{
			Repository: repository,
			Status:     status,
			Limit:      limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list work items: %w", err)
		}

		if len(items) == 0 {
			fmt.Println("No work items found.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Item", "Title", "Priority", "Status", "Assigned To"})
		for _, item := range items {
			tw.AppendRow(table.Row{
				item.Key(),
				truncate(item.Title, 48),
				fmt.Sprintf("%.2f", item.Priority),
				fmt.Sprintf("%s %s", getStatusIcon(item.Status.String()), item.Status),
				item.AssignedTo,
			})
		}
		tw.Render()
		return nil
	},
}

var itemShowCmd = &cobra.Command{
	Use:   "show [repository] [number]",
	Short: "Show one work item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid issue number %q: %w", args[1], err)
		}

		item, err := wire.WorkItemService().Get(ctx, args[0], number)
		if err != nil {
			return fmt.Errorf("failed to get work item: %w", err)
		}
		if item == nil {
			fmt.Printf("Work item %s not found.\n", primary.ItemKey(args[0], number))
			return nil
		}

		fmt.Printf("%s %s\n", getStatusIcon(item.Status.String()), item.Key())
		fmt.Printf("  Title:       %s\n", item.Title)
		fmt.Printf("  Category:    %s\n", item.Category)
		fmt.Printf("  Complexity:  %d\n", item.Complexity)
		fmt.Printf("  Solvability: %.2f\n", item.Solvability)
		fmt.Printf("  Priority:    %.2f\n", item.Priority)
		fmt.Printf("  Status:      %s\n", item.Status)
		if item.AssignedTo != "" {
			fmt.Printf("  Assigned to: %s (since %s)\n", item.AssignedTo, item.AssignedAt)
			fmt.Printf("  Heartbeat:   %s\n", item.LastHeartbeatAt)
		}
		fmt.Printf("  Created:     %s\n", item.CreatedAt)
		fmt.Printf("  Updated:     %s\n", item.UpdatedAt)
		return nil
	},
}

var itemRemoveCmd = &cobra.Command{
	Use:   "remove [repository] [number]",
	Short: "Remove a work item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		number, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid issue number %q: %w", args[1], err)
		}

		if err := wire.WorkItemService().Remove(ctx, args[0], number); err != nil {
			return fmt.Errorf("failed to remove work item: %w", err)
		}
		fmt.Printf("✓ Removed %s\n", primary.ItemKey(args[0], number))
		return nil
	},
}

func init() {
	itemAddCmd.Flags().String("title", "", "Item title")
	itemAddCmd.Flags().String("category", "", "Issue category (bug, feature, ...)")
	itemAddCmd.Flags().Int("complexity", 0, "Complexity 1-10 (0 = default)")
	itemAddCmd.Flags().Float64("solvability", 0, "Solvability score 0-1")
	itemAddCmd.Flags().Float64("priority", 0, "Priority score")
	itemAddCmd.Flags().String("data", "", "Opaque analyzer payload (JSON)")

	itemListCmd.Flags().String("repo", "", "Filter by repository")
	itemListCmd.Flags().String("status", "", "Filter by assignment status")
	itemListCmd.Flags().Int("limit", 0, "Maximum rows (0 = all)")

	itemCmd.AddCommand(itemAddCmd)
	itemCmd.AddCommand(itemListCmd)
	itemCmd.AddCommand(itemShowCmd)
	itemCmd.AddCommand(itemRemoveCmd)
}

// ItemCmd returns the item command for registration
func ItemCmd() *cobra.Command {
	return itemCmd
}

// getStatusIcon returns an icon for the assignment status
func getStatusIcon(status string) string {
	switch status {
	case "available":
		return "○"
	case "assigned":
		return "●"
	case "completed":
		return "✓"
	case "failed":
		return "✗"
	default:
		return "?"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
