package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"hostelpass/internal/adapters/persistence/models"
	"hostelpass/internal/adapters/persistence/repositories"
	"hostelpass/internal/core/domain"
	"hostelpass/internal/pkg/gatetoken"
)

var guardActor = domain.Identity{UserID: 50, Username: "guard1", Role: domain.RoleGuard}

func newScanFixtures() (*ScanService, *fakeLeaveRepo, *fakeScanEventRepo) {
	leaveRepo := newFakeLeaveRepo()
	scanRepo := newFakeScanEventRepo()
	return NewScanService(leaveRepo, scanRepo), leaveRepo, scanRepo
}

// approvedLeave seeds a leave that is mid-window with a minted token.
func approvedLeave(repo *fakeLeaveRepo, now time.Time) *models.LeaveRequest {
	token := gatetoken.Mint(studentID, repo.nextID)
	expiry := now.Add(48 * time.Hour)
	return repo.add(&models.LeaveRequest{
		StudentID:       studentID,
		FromDate:        now.Add(-24 * time.Hour),
		ToDate:          expiry,
		Reason:          "family function",
		Status:          domain.StatusApproved,
		Advisor:         models.StageDecision{Status: domain.StatusApproved},
		Hod:             models.StageDecision{Status: domain.StatusApproved},
		Warden:          models.StageDecision{Status: domain.StatusApproved},
		GateToken:       &token,
		GateTokenExpiry: &expiry,
		ScanStatus:      domain.ScanNotScanned,
		Student: &models.User{
			ID: studentID, RegNo: "CS2021001", FullName: "Test Student",
			Role: string(domain.RoleStudent),
		},
	})
}

func lastEvent(t *testing.T, scanRepo *fakeScanEventRepo) *models.ScanEvent {
	t.Helper()
	if len(scanRepo.events) == 0 {
		t.Fatal("no scan event recorded")
	}
	return scanRepo.events[len(scanRepo.events)-1]
}

func TestProcessScan_ExitThenReturnCycle(t *testing.T) {
	svc, leaveRepo, scanRepo := newScanFixtures()
	now := time.Now()
	leave := approvedLeave(leaveRepo, now)
	token := *leave.GateToken

	out, err := svc.ProcessScan(context.Background(), token, guardActor, now)
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if out.Direction != domain.DirectionExit {
		t.Errorf("first scan direction = %q, want EXIT", out.Direction)
	}
	if out.StudentName != "Test Student" || out.StudentReg != "CS2021001" {
		t.Errorf("outcome student = %q/%q, want preloaded values", out.StudentName, out.StudentReg)
	}
	if leave.ScanStatus != domain.ScanExited {
		t.Errorf("scan status after exit = %q, want exited", leave.ScanStatus)
	}
	if leave.ExitedAt == nil {
		t.Error("exit timestamp not recorded")
	}

	later := now.Add(6 * time.Hour)
	out, err = svc.ProcessScan(context.Background(), token, guardActor, later)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if out.Direction != domain.DirectionReturn {
		t.Errorf("second scan direction = %q, want RETURN", out.Direction)
	}
	if leave.ScanStatus != domain.ScanReturned {
		t.Errorf("scan status after return = %q, want returned", leave.ScanStatus)
	}
	if leave.ReturnedAt == nil {
		t.Error("return timestamp not recorded")
	}

	if _, err := svc.ProcessScan(context.Background(), token, guardActor, later.Add(time.Hour)); !errors.Is(err, domain.ErrCycleAlreadyComplete) {
		t.Fatalf("third scan: got %v, want ErrCycleAlreadyComplete", err)
	}

	// Two valid events plus one rejected attempt, in order.
	if len(scanRepo.events) != 3 {
		t.Fatalf("event count = %d, want 3", len(scanRepo.events))
	}
	if !scanRepo.events[0].IsValid || !scanRepo.events[1].IsValid {
		t.Error("cycle scans not recorded as valid")
	}
	third := scanRepo.events[2]
	if third.IsValid || third.FailureReason != models.ScanFailCycleAlreadyComplete {
		t.Errorf("third event valid=%v reason=%q, want invalid CycleAlreadyComplete", third.IsValid, third.FailureReason)
	}
}

func TestProcessScan_RequiresGuardRole(t *testing.T) {
	svc, leaveRepo, scanRepo := newScanFixtures()
	now := time.Now()
	leave := approvedLeave(leaveRepo, now)

	if _, err := svc.ProcessScan(context.Background(), *leave.GateToken, wardenActor, now); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("warden scan: got %v, want ErrUnauthorized", err)
	}
	if len(scanRepo.events) != 0 {
		t.Errorf("unauthorized attempt logged %d events, want 0", len(scanRepo.events))
	}
	if leave.ScanStatus != domain.ScanNotScanned {
		t.Error("unauthorized attempt mutated the leave")
	}
}

func TestProcessScan_MalformedToken(t *testing.T) {
	svc, _, scanRepo := newScanFixtures()
	now := time.Now()

	if _, err := svc.ProcessScan(context.Background(), "not-a-token", guardActor, now); !errors.Is(err, domain.ErrMalformedToken) {
		t.Fatalf("got %v, want ErrMalformedToken", err)
	}

	ev := lastEvent(t, scanRepo)
	if ev.IsValid || ev.FailureReason != models.ScanFailMalformedToken {
		t.Errorf("event valid=%v reason=%q, want invalid MalformedToken", ev.IsValid, ev.FailureReason)
	}
	if ev.LeaveID != nil {
		t.Error("malformed token event linked to a leave")
	}
	if ev.GuardID != guardActor.UserID {
		t.Errorf("event guard = %d, want %d", ev.GuardID, guardActor.UserID)
	}
}

func TestProcessScan_UnknownToken(t *testing.T) {
	svc, _, scanRepo := newScanFixtures()
	now := time.Now()

	token := gatetoken.Mint(1, 1)
	if _, err := svc.ProcessScan(context.Background(), token, guardActor, now); !errors.Is(err, domain.ErrUnknownToken) {
		t.Fatalf("got %v, want ErrUnknownToken", err)
	}

	ev := lastEvent(t, scanRepo)
	if ev.IsValid || ev.FailureReason != models.ScanFailUnknownToken {
		t.Errorf("event valid=%v reason=%q, want invalid UnknownToken", ev.IsValid, ev.FailureReason)
	}
}

func TestProcessScan_NotApproved(t *testing.T) {
	svc, leaveRepo, scanRepo := newScanFixtures()
	now := time.Now()
	leave := approvedLeave(leaveRepo, now)
	leave.Status = domain.StatusRejected

	if _, err := svc.ProcessScan(context.Background(), *leave.GateToken, guardActor, now); !errors.Is(err, domain.ErrNotApproved) {
		t.Fatalf("got %v, want ErrNotApproved", err)
	}

	ev := lastEvent(t, scanRepo)
	if ev.IsValid || ev.FailureReason != models.ScanFailNotApproved {
		t.Errorf("event valid=%v reason=%q, want invalid NotApproved", ev.IsValid, ev.FailureReason)
	}
	if ev.LeaveID == nil || *ev.LeaveID != leave.ID {
		t.Error("event not linked to the matched leave")
	}
	if leave.ScanStatus != domain.ScanNotScanned {
		t.Error("rejected scan mutated the leave")
	}
}

func TestProcessScan_OutsideLeaveWindow(t *testing.T) {
	svc, leaveRepo, scanRepo := newScanFixtures()
	now := time.Now()
	leave := approvedLeave(leaveRepo, now)

	early := leave.FromDate.Add(-time.Hour)
	if _, err := svc.ProcessScan(context.Background(), *leave.GateToken, guardActor, early); !errors.Is(err, domain.ErrOutsideLeaveWindow) {
		t.Fatalf("before window: got %v, want ErrOutsideLeaveWindow", err)
	}

	late := leave.ToDate.Add(time.Hour)
	if _, err := svc.ProcessScan(context.Background(), *leave.GateToken, guardActor, late); !errors.Is(err, domain.ErrOutsideLeaveWindow) {
		t.Fatalf("after window: got %v, want ErrOutsideLeaveWindow", err)
	}

	if len(scanRepo.events) != 2 {
		t.Fatalf("event count = %d, want 2", len(scanRepo.events))
	}
	for _, ev := range scanRepo.events {
		if ev.IsValid || ev.FailureReason != models.ScanFailOutsideLeaveWindow {
			t.Errorf("event valid=%v reason=%q, want invalid OutsideLeaveWindow", ev.IsValid, ev.FailureReason)
		}
	}
	if leave.ScanStatus != domain.ScanNotScanned {
		t.Error("rejected scans mutated the leave")
	}
}

func TestProcessScan_ExpiredTokenRejectedInsideWindow(t *testing.T) {
	svc, leaveRepo, scanRepo := newScanFixtures()
	now := time.Now()
	leave := approvedLeave(leaveRepo, now)

	// Expiry cut short while the leave window still covers now.
	earlier := now.Add(-time.Hour)
	leave.GateTokenExpiry = &earlier

	if _, err := svc.ProcessScan(context.Background(), *leave.GateToken, guardActor, now); !errors.Is(err, domain.ErrOutsideLeaveWindow) {
		t.Fatalf("got %v, want ErrOutsideLeaveWindow", err)
	}
	if ev := lastEvent(t, scanRepo); ev.FailureReason != models.ScanFailOutsideLeaveWindow {
		t.Errorf("event reason = %q, want OutsideLeaveWindow", ev.FailureReason)
	}
}

func TestProcessScan_LostRace(t *testing.T) {
	leaveRepo := newFakeLeaveRepo()
	scanRepo := newFakeScanEventRepo()
	svc := NewScanService(&racyScanLeaveRepo{leaveRepo}, scanRepo)
	now := time.Now()
	leave := approvedLeave(leaveRepo, now)

	if _, err := svc.ProcessScan(context.Background(), *leave.GateToken, guardActor, now); !errors.Is(err, domain.ErrCycleAlreadyComplete) {
		t.Fatalf("lost race: got %v, want ErrCycleAlreadyComplete", err)
	}
	ev := lastEvent(t, scanRepo)
	if ev.IsValid || ev.FailureReason != models.ScanFailCycleAlreadyComplete {
		t.Errorf("event valid=%v reason=%q, want invalid CycleAlreadyComplete", ev.IsValid, ev.FailureReason)
	}
	if leave.ScanStatus != domain.ScanNotScanned {
		t.Error("losing call mutated the leave")
	}
}

// racyScanLeaveRepo reports every scan write as not applied, as when a
// concurrent scan advanced the state between read and write.
type racyScanLeaveRepo struct {
	*fakeLeaveRepo
}

func (r *racyScanLeaveRepo) ApplyScan(ctx context.Context, leaveID uint, upd *repositories.ScanUpdate) (bool, error) {
	return false, nil
}

func TestHistory_GuardOnly(t *testing.T) {
	svc, _, scanRepo := newScanFixtures()

	if _, err := svc.History(context.Background(), studentActor); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("student history: got %v, want ErrUnauthorized", err)
	}

	otherGuard := uint(51)
	for i := 0; i < 5; i++ {
		guard := guardActor.UserID
		if i%2 == 1 {
			guard = otherGuard
		}
		scanRepo.events = append(scanRepo.events, &models.ScanEvent{
			ID: uint(i + 1), GuardID: guard, IsValid: true, RecordedAt: time.Now(),
		})
	}

	events, err := svc.History(context.Background(), guardActor)
	if err != nil {
		t.Fatalf("guard history failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("history length = %d, want 3", len(events))
	}
	for _, ev := range events {
		if ev.GuardID != guardActor.UserID {
			t.Errorf("history leaked event for guard %d", ev.GuardID)
		}
	}
	// Newest first.
	if events[0].ID < events[len(events)-1].ID {
		t.Error("history not newest first")
	}
}
