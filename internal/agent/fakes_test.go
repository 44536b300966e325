package agent

import (
	"context"
	"sync"
	"time"

	"github.com/example/fleet/internal/core/lease"
	"github.com/example/fleet/internal/ports/primary"
)

// fakeLeaseService is an in-memory LeaseService for monitor and runner tests.
type fakeLeaseService struct {
	mu sync.Mutex

	// queue feeds ClaimHighestPriority; nil entries mean "nothing claimable".
	queue []*primary.WorkItem

	heartbeatOK  bool
	heartbeatErr error
	heartbeats   int
	// heartbeatCh receives one value per Heartbeat call when non-nil.
	heartbeatCh chan struct{}

	releases []releaseCall
}

type releaseCall struct {
	repository string
	number     int
	agentID    string
	outcome    lease.Status
}

func newFakeLeaseService() *fakeLeaseService {
	return &fakeLeaseService{heartbeatOK: true}
}

func (f *fakeLeaseService) Claim(ctx context.Context, repository string, number int, agentID string) (bool, error) {
	return true, nil
}

func (f *fakeLeaseService) ClaimHighestPriority(ctx context.Context, agentID string) (*primary.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, nil
	}
	item := f.queue[0]
	f.queue = f.queue[1:]
	return item, nil
}

func (f *fakeLeaseService) Heartbeat(ctx context.Context, repository string, number int, agentID string) (bool, error) {
	f.mu.Lock()
	f.heartbeats++
	ok, err, ch := f.heartbeatOK, f.heartbeatErr, f.heartbeatCh
	f.mu.Unlock()

	if ch != nil {
		ch <- struct{}{}
	}
	return ok, err
}

func (f *fakeLeaseService) Release(ctx context.Context, repository string, number int, agentID string, outcome lease.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, releaseCall{repository, number, agentID, outcome})
	return nil
}

func (f *fakeLeaseService) ReleaseStale(ctx context.Context, timeout time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeLeaseService) ReleaseAgent(ctx context.Context, agentID string) (int, error) {
	return 0, nil
}

func (f *fakeLeaseService) Assigned(ctx context.Context, agentID string) (*primary.WorkItem, error) {
	return nil, nil
}

func (f *fakeLeaseService) ListLeases(ctx context.Context, staleOnly bool, timeout time.Duration) ([]*primary.WorkItem, error) {
	return nil, nil
}

func (f *fakeLeaseService) heartbeatCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heartbeats
}

func (f *fakeLeaseService) releaseCalls() []releaseCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]releaseCall(nil), f.releases...)
}

func (f *fakeLeaseService) setHeartbeatResult(ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeatOK = ok
	f.heartbeatErr = err
}

// fakeBudgetService records charges for runner tests.
type fakeBudgetService struct {
	mu     sync.Mutex
	tokens map[string]int
	issues map[string]int
	prs    int
}

func newFakeBudgetService() *fakeBudgetService {
	return &fakeBudgetService{
		tokens: make(map[string]int),
		issues: make(map[string]int),
	}
}

func (f *fakeBudgetService) CanAfford(ctx context.Context, repository, language string, estimatedTokens int) (bool, error) {
	return true, nil
}

func (f *fakeBudgetService) RecordUsage(ctx context.Context, repository, language string, tokens int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[repository] += tokens
	return nil
}

func (f *fakeBudgetService) RecordIssueProcessed(ctx context.Context, repository, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issues[repository]++
	return nil
}

func (f *fakeBudgetService) RecordPRCreated(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prs++
	return nil
}

func (f *fakeBudgetService) Report(ctx context.Context) (*primary.BudgetReport, error) {
	return &primary.BudgetReport{}, nil
}

func (f *fakeBudgetService) ResetWeekly(ctx context.Context) error { return nil }

func (f *fakeBudgetService) ResetRepo(ctx context.Context, repository string) error { return nil }

func (f *fakeBudgetService) ResetLanguage(ctx context.Context, language string) error { return nil }

func (f *fakeBudgetService) tokensFor(repository string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[repository]
}

func (f *fakeBudgetService) issuesFor(repository string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issues[repository]
}
