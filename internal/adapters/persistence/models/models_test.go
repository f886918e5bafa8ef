package models

import (
	"testing"
	"time"

	"hostelpass/internal/core/domain"
)

func leaveWith(advisor, hod, warden string) *LeaveRequest {
	return &LeaveRequest{
		Advisor: StageDecision{Status: advisor},
		Hod:     StageDecision{Status: hod},
		Warden:  StageDecision{Status: warden},
	}
}

func TestDeriveStatus(t *testing.T) {
	p, a, rj := domain.StatusPending, domain.StatusApproved, domain.StatusRejected

	tests := []struct {
		name                 string
		advisor, hod, warden string
		want                 string
	}{
		{"all pending", p, p, p, domain.StatusPending},
		{"advisor only", a, p, p, domain.StatusPending},
		{"two approved", a, a, p, domain.StatusPending},
		{"all approved", a, a, a, domain.StatusApproved},
		{"advisor rejected", rj, p, p, domain.StatusRejected},
		{"warden rejected after approvals", a, a, rj, domain.StatusRejected},
		{"rejection wins over approvals", a, rj, a, domain.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leave := leaveWith(tt.advisor, tt.hod, tt.warden)
			if got := leave.DeriveStatus(); got != tt.want {
				t.Errorf("DeriveStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	leave := &LeaveRequest{FromDate: from, ToDate: to}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before window", from.Add(-time.Minute), false},
		{"at start", from, true},
		{"mid window", from.Add(48 * time.Hour), true},
		{"at end", to, true},
		{"after window", to.Add(time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := leave.WindowContains(tt.at); got != tt.want {
				t.Errorf("WindowContains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestStageFor(t *testing.T) {
	leave := leaveWith(domain.StatusApproved, domain.StatusPending, domain.StatusRejected)

	if got := leave.StageFor(domain.StageAdvisor).Status; got != domain.StatusApproved {
		t.Errorf("advisor stage = %q", got)
	}
	if got := leave.StageFor(domain.StageHOD).Status; got != domain.StatusPending {
		t.Errorf("hod stage = %q", got)
	}
	if got := leave.StageFor(domain.StageWarden).Status; got != domain.StatusRejected {
		t.Errorf("warden stage = %q", got)
	}
	if leave.StageFor(domain.Stage("principal")) != nil {
		t.Error("unknown stage should have no decision block")
	}
}

func TestStageColumnPrefix(t *testing.T) {
	if got := StageColumnPrefix(domain.StageHOD); got != "hod_" {
		t.Errorf("StageColumnPrefix(hod) = %q, want hod_", got)
	}
}
