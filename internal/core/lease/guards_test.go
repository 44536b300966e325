package lease

import (
	"testing"
	"time"
)

func TestIsStale(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute

	tests := []struct {
		name          string
		lastHeartbeat *time.Time
		want          bool
	}{
		{
			name:          "no heartbeat recorded is always stale",
			lastHeartbeat: nil,
			want:          true,
		},
		{
			name:          "fresh heartbeat",
			lastHeartbeat: timePtr(now.Add(-time.Minute)),
			want:          false,
		},
		{
			name:          "heartbeat exactly at the timeout is not stale",
			lastHeartbeat: timePtr(now.Add(-timeout)),
			want:          false,
		},
		{
			name:          "heartbeat past the timeout",
			lastHeartbeat: timePtr(now.Add(-timeout - time.Second)),
			want:          true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsStale(tt.lastHeartbeat, timeout, now)
			if got != tt.want {
				t.Errorf("IsStale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanClaim(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute

	tests := []struct {
		name        string
		ctx         ClaimContext
		wantAllowed bool
	}{
		{
			name:        "available item",
			ctx:         ClaimContext{Status: StatusAvailable},
			wantAllowed: true,
		},
		{
			name:        "completed item is retryable",
			ctx:         ClaimContext{Status: StatusCompleted},
			wantAllowed: true,
		},
		{
			name:        "failed item is retryable",
			ctx:         ClaimContext{Status: StatusFailed},
			wantAllowed: true,
		},
		{
			name: "assigned with live lease",
			ctx: ClaimContext{
				Status:        StatusAssigned,
				LastHeartbeat: timePtr(now.Add(-time.Minute)),
				Timeout:       timeout,
				Now:           now,
			},
			wantAllowed: false,
		},
		{
			name: "assigned with stale lease",
			ctx: ClaimContext{
				Status:        StatusAssigned,
				LastHeartbeat: timePtr(now.Add(-timeout - time.Second)),
				Timeout:       timeout,
				Now:           now,
			},
			wantAllowed: true,
		},
		{
			name: "assigned with no heartbeat",
			ctx: ClaimContext{
				Status:  StatusAssigned,
				Timeout: timeout,
				Now:     now,
			},
			wantAllowed: true,
		},
		{
			name:        "unknown status",
			ctx:         ClaimContext{Status: Status("garbage")},
			wantAllowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanClaim(tt.ctx)
			if got.Allowed != tt.wantAllowed {
				t.Errorf("CanClaim() allowed = %v, want %v (reason %q)", got.Allowed, tt.wantAllowed, got.Reason)
			}
		})
	}
}

func TestCanRelease(t *testing.T) {
	tests := []struct {
		name        string
		outcome     Status
		wantAllowed bool
	}{
		{name: "release to available", outcome: StatusAvailable, wantAllowed: true},
		{name: "release to completed", outcome: StatusCompleted, wantAllowed: true},
		{name: "release to failed", outcome: StatusFailed, wantAllowed: true},
		{name: "release to assigned is not a release", outcome: StatusAssigned, wantAllowed: false},
		{name: "release to garbage", outcome: Status("garbage"), wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanRelease(ReleaseContext{Outcome: tt.outcome})
			if got.Allowed != tt.wantAllowed {
				t.Errorf("CanRelease(%q) allowed = %v, want %v", tt.outcome, got.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && got.Error() == nil {
				t.Error("expected Error() to be non-nil when not allowed")
			}
		})
	}
}

func TestParse(t *testing.T) {
	for _, valid := range []string{"available", "assigned", "completed", "failed"} {
		got, err := Parse(valid)
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", valid, err)
		}
		if got.String() != valid {
			t.Errorf("Parse(%q) = %q", valid, got)
		}
	}

	if _, err := Parse("done"); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusAvailable.Claimable() || !StatusCompleted.Claimable() || !StatusFailed.Claimable() {
		t.Error("expected non-assigned statuses to be claimable")
	}
	if StatusAssigned.Claimable() {
		t.Error("expected assigned to not be claimable outright")
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
