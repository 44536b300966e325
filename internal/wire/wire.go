// Package wire provides dependency injection for the fleet application.
// It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/fleet/internal/adapters/sqlite"
	"github.com/example/fleet/internal/app"
	"github.com/example/fleet/internal/config"
	"github.com/example/fleet/internal/db"
	"github.com/example/fleet/internal/estimate"
	"github.com/example/fleet/internal/logging"
	"github.com/example/fleet/internal/ports/primary"
)

var (
	cfg              *config.Config
	logger           *zap.Logger
	leaseService     primary.LeaseService
	budgetService    primary.BudgetService
	admissionService primary.AdmissionService
	workItemService  primary.WorkItemService
	once             sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// Logger returns the process logger.
func Logger() *zap.Logger {
	once.Do(initServices)
	return logger
}

// LeaseService returns the singleton LeaseService instance.
func LeaseService() primary.LeaseService {
	once.Do(initServices)
	return leaseService
}

// BudgetService returns the singleton BudgetService instance.
func BudgetService() primary.BudgetService {
	once.Do(initServices)
	return budgetService
}

// AdmissionService returns the singleton AdmissionService instance.
func AdmissionService() primary.AdmissionService {
	once.Do(initServices)
	return admissionService
}

// WorkItemService returns the singleton WorkItemService instance.
func WorkItemService() primary.WorkItemService {
	once.Do(initServices)
	return workItemService
}

// HeartbeatInterval returns the configured lease renewal interval.
func HeartbeatInterval() time.Duration {
	once.Do(initServices)
	return cfg.Lease.HeartbeatInterval()
}

// LeaseTimeout returns the configured lease staleness timeout.
func LeaseTimeout() time.Duration {
	once.Do(initServices)
	return cfg.Lease.Timeout()
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once. A store that cannot be opened is
// fatal: every command needs it and exits non-zero without it.
func initServices() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err = logging.New(cfg.Logging.Debug)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	path := cfg.DB.Path
	if path == "" {
		path, err = db.DefaultPath()
		if err != nil {
			log.Fatalf("failed to resolve database path: %v", err)
		}
	}

	database, err := db.Open(path)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Repository adapters (secondary ports) with the injected DB.
	itemRepo := sqlite.NewWorkItemRepository(database)
	budgetRepo := sqlite.NewBudgetRepository(database)

	// Services (primary ports implementation).
	leaseService = app.NewLeaseService(itemRepo, cfg.Lease.Timeout(), logger)
	budgetService = app.NewBudgetService(budgetRepo, cfg.Budget, logger)
	admissionService = app.NewAdmissionService(budgetService, estimate.New(0), logger)
	workItemService = app.NewWorkItemService(itemRepo, logger)
}
