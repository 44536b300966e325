package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/fleet/internal/core/lease"
	"github.com/example/fleet/internal/ports/primary"
)

// Monitor renews the heartbeat for one held lease at a time. Start it after
// a successful claim and stop it on every exit path of the work loop; Stop
// is idempotent. When a renewal is rejected the lease is gone (reclaimed as
// stale), so the monitor stops itself and flags the loss for the owner.
type Monitor struct {
	agentID  string
	leases   primary.LeaseService
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	lost    bool
	running bool
}

// NewMonitor creates a heartbeat monitor for one agent.
// interval <= 0 selects the default heartbeat interval.
func NewMonitor(agentID string, leases primary.LeaseService, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = lease.DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		agentID:  agentID,
		leases:   leases,
		interval: interval,
		logger:   logger,
	}
}

// StartMonitoring begins renewing the lease on (repository, number). Any
// previous monitoring is stopped first, so a monitor can follow its agent
// from one assignment to the next.
func (m *Monitor) StartMonitoring(repository string, number int) {
	m.StopMonitoring()

	m.mu.Lock()
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.lost = false
	m.running = true
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	go m.loop(repository, number, stopCh, doneCh)

	m.logger.Info("heartbeat monitoring started",
		zap.String("repository", repository),
		zap.Int("number", number),
		zap.String("agent_id", m.agentID))
}

// StopMonitoring stops the renewal loop and waits for it to exit.
// Safe to call repeatedly and when nothing is being monitored.
func (m *Monitor) StopMonitoring() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	doneCh := m.doneCh
	m.mu.Unlock()

	<-doneCh
	m.logger.Info("heartbeat monitoring stopped", zap.String("agent_id", m.agentID))
}

// LeaseLost reports whether the monitored lease was lost. The owning work
// loop must treat its current task as abandoned when this is true.
func (m *Monitor) LeaseLost() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lost
}

func (m *Monitor) loop(repository string, number int, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		// The stop signal interrupts the wait itself, not just the next
		// iteration.
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		ok, err := m.leases.Heartbeat(context.Background(), repository, number, m.agentID)
		if err != nil {
			// Transient store failure: the next tick retries.
			m.logger.Warn("heartbeat error",
				zap.String("repository", repository),
				zap.Int("number", number),
				zap.Error(err))
			continue
		}
		if !ok {
			m.logger.Warn("heartbeat rejected, lease lost",
				zap.String("repository", repository),
				zap.Int("number", number),
				zap.String("agent_id", m.agentID))
			m.mu.Lock()
			m.lost = true
			m.running = false
			m.mu.Unlock()
			return
		}
	}
}
