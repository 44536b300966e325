package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/fleet/internal/core/lease"
	"github.com/example/fleet/internal/ports/primary"
)

// Processor attempts one work item and reports the tokens it spent.
// Implementations wrap the analysis/fix pipeline; the runner never looks
// inside the attempt.
type Processor interface {
	Process(ctx context.Context, item *primary.WorkItem) (tokensUsed int, err error)
}

// Runner is the agent work loop: claim the best item, keep its lease alive,
// hand it to the processor, release with the outcome, and charge the ledger.
type Runner struct {
	identity  Identity
	leases    primary.LeaseService
	budget    primary.BudgetService
	processor Processor
	language  string

	workers  int
	interval time.Duration
	idleWait time.Duration
	logger   *zap.Logger
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Workers is the number of concurrent work loops (default 1). Each
	// worker claims under its own derived agent id so leases stay 1:1.
	Workers int
	// HeartbeatInterval overrides the lease renewal interval.
	HeartbeatInterval time.Duration
	// IdleWait is how long a worker sleeps when the backlog is empty
	// (default 30s).
	IdleWait time.Duration
	// Language is the language charged for processed items.
	Language string
}

// NewRunner creates a work-loop runner.
func NewRunner(identity Identity, leases primary.LeaseService, budget primary.BudgetService, processor Processor, opts RunnerOptions, logger *zap.Logger) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	idleWait := opts.IdleWait
	if idleWait <= 0 {
		idleWait = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		identity:  identity,
		leases:    leases,
		budget:    budget,
		processor: processor,
		language:  opts.Language,
		workers:   workers,
		interval:  opts.HeartbeatInterval,
		idleWait:  idleWait,
		logger:    logger,
	}
}

// Run drives the work loops until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		agentID := r.identity.AgentID
		if r.workers > 1 {
			agentID = fmt.Sprintf("%s-w%d", r.identity.AgentID, i)
		}
		g.Go(func() error {
			return r.workLoop(ctx, agentID)
		})
	}
	return g.Wait()
}

func (r *Runner) workLoop(ctx context.Context, agentID string) error {
	log := r.logger.With(zap.String("agent_id", agentID))

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		item, err := r.leases.ClaimHighestPriority(ctx, agentID)
		if err != nil {
			log.Warn("claim failed", zap.Error(err))
			if !r.sleep(ctx) {
				return nil
			}
			continue
		}
		if item == nil {
			if !r.sleep(ctx) {
				return nil
			}
			continue
		}

		r.processOne(ctx, agentID, item, log)
	}
}

// processOne runs a single attempt. The deferred StopMonitoring guarantees
// the heartbeat loop ends on every exit path, including processor panics.
func (r *Runner) processOne(ctx context.Context, agentID string, item *primary.WorkItem, log *zap.Logger) {
	monitor := NewMonitor(agentID, r.leases, r.interval, r.logger)
	monitor.StartMonitoring(item.Repository, item.Number)
	defer monitor.StopMonitoring()

	tokensUsed, procErr := r.processor.Process(ctx, item)

	if monitor.LeaseLost() {
		// The item may already belong to someone else; releasing or
		// charging for it now would fight the new owner.
		log.Warn("abandoning work, lease was reclaimed",
			zap.String("item", item.Key()))
		return
	}

	outcome := lease.StatusCompleted
	if procErr != nil {
		outcome = lease.StatusFailed
		log.Warn("processing failed",
			zap.String("item", item.Key()),
			zap.Error(procErr))
	}

	if err := r.leases.Release(ctx, item.Repository, item.Number, agentID, outcome); err != nil {
		log.Warn("release failed", zap.String("item", item.Key()), zap.Error(err))
	}

	if tokensUsed > 0 {
		if err := r.budget.RecordUsage(ctx, item.Repository, r.language, tokensUsed); err != nil {
			log.Warn("usage record failed", zap.String("item", item.Key()), zap.Error(err))
		}
	}
	if err := r.budget.RecordIssueProcessed(ctx, item.Repository, r.language); err != nil {
		log.Warn("issue record failed", zap.String("item", item.Key()), zap.Error(err))
	}
}

// sleep waits out the idle interval; false means ctx was cancelled.
func (r *Runner) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(r.idleWait):
		return true
	}
}
