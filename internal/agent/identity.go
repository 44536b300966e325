// Package agent holds the agent-side runtime: process identity, the
// heartbeat monitor, and the work-loop runner.
package agent

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Identity uniquely identifies one agent process. It is generated once at
// startup and used only as an opaque token for lease ownership comparisons.
type Identity struct {
	AgentID   string
	Hostname  string
	PID       int
	StartedAt time.Time
}

// NewIdentity creates the identity for this process.
func NewIdentity() Identity {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	pid := os.Getpid()
	return Identity{
		AgentID:   fmt.Sprintf("%s-%d-%s", hostname, pid, uuid.NewString()[:8]),
		Hostname:  hostname,
		PID:       pid,
		StartedAt: time.Now(),
	}
}
