package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/fleet/internal/agent"
	"github.com/example/fleet/internal/ports/primary"
	"github.com/example/fleet/internal/wire"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent work loop",
	Long: `Claim work items by priority and hand each to the processor command,
keeping the lease heartbeat alive while it runs. The processor receives the
item through FLEET_REPO, FLEET_NUMBER, FLEET_TITLE, and FLEET_DATA; its last
stdout line, when numeric, is recorded as tokens used. Runs until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workers, _ := cmd.Flags().GetInt("workers")
		language, _ := cmd.Flags().GetString("language")
		processorCmd, _ := cmd.Flags().GetString("processor")
		idleWait, _ := cmd.Flags().GetDuration("idle-wait")
		if processorCmd == "" {
			return fmt.Errorf("--processor is required")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		identity := agent.NewIdentity()
		fmt.Printf("✓ Agent %s starting with %d worker(s)\n", identity.AgentID, max(workers, 1))

		runner := agent.NewRunner(
			identity,
			wire.LeaseService(),
			wire.BudgetService(),
			&commandProcessor{command: processorCmd, logger: wire.Logger()},
			agent.RunnerOptions{
				Workers:           workers,
				HeartbeatInterval: wire.HeartbeatInterval(),
				IdleWait:          idleWait,
				Language:          language,
			},
			wire.Logger(),
		)

		if err := runner.Run(ctx); err != nil {
			return fmt.Errorf("work loop failed: %w", err)
		}
		fmt.Println("Agent stopped.")
		return nil
	},
}

// commandProcessor shells out to an external command for each claimed item.
type commandProcessor struct {
	command string
	logger  *zap.Logger
}

func (p *commandProcessor) Process(ctx context.Context, item *primary.WorkItem) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", p.command)
	cmd.Env = append(os.Environ(),
		"FLEET_REPO="+item.Repository,
		"FLEET_NUMBER="+strconv.Itoa(item.Number),
		"FLEET_TITLE="+item.Title,
		"FLEET_DATA="+item.Data,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	start := time.Now()
	err := cmd.Run()
	p.logger.Info("processor finished",
		zap.String("item", item.Key()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))

	tokens := parseTokens(stdout.String())
	if err != nil {
		return tokens, fmt.Errorf("processor command failed: %w", err)
	}
	return tokens, nil
}

// parseTokens reads the trailing numeric stdout line, 0 when absent.
func parseTokens(out string) int {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	tokens, err := strconv.Atoi(last)
	if err != nil || tokens < 0 {
		return 0
	}
	return tokens
}

func init() {
	runCmd.Flags().Int("workers", 1, "Concurrent work loops")
	runCmd.Flags().String("language", "", "Language charged for processed items")
	runCmd.Flags().String("processor", "", "Shell command run for each claimed item")
	runCmd.Flags().Duration("idle-wait", 0, "Sleep between claims when the backlog is empty")
}

// RunCmd returns the run command for registration
func RunCmd() *cobra.Command {
	return runCmd
}
