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

var (
	studentID = uint(10)
	advisorID = uint(20)

	studentActor = domain.Identity{UserID: 10, Username: "student1", Role: domain.RoleStudent}
	advisorActor = domain.Identity{UserID: 20, Username: "advisor1", Role: domain.RoleAdvisor}
	hodActor     = domain.Identity{UserID: 30, Username: "hod1", Role: domain.RoleHOD}
	wardenActor  = domain.Identity{UserID: 40, Username: "warden1", Role: domain.RoleWarden}
)

func newLeaveFixtures() (*LeaveService, *fakeLeaveRepo, *fakeUserRepo) {
	leaveRepo := newFakeLeaveRepo()
	userRepo := newFakeUserRepo()

	userRepo.users[studentID] = &models.User{
		ID: studentID, RegNo: "CS2021001", Username: "student1",
		FullName: "Test Student", Role: string(domain.RoleStudent),
		AdvisorID: &advisorID, IsActive: true,
	}
	userRepo.users[advisorID] = &models.User{
		ID: advisorID, Username: "advisor1", Role: string(domain.RoleAdvisor), IsActive: true,
	}

	return NewLeaveService(leaveRepo, userRepo), leaveRepo, userRepo
}

func pendingLeave(repo *fakeLeaveRepo) *models.LeaveRequest {
	return repo.add(&models.LeaveRequest{
		StudentID:        studentID,
		FromDate:         time.Now().Add(24 * time.Hour),
		ToDate:           time.Now().Add(96 * time.Hour),
		Reason:           "family function",
		Destination:      "home town",
		EmergencyContact: "9876543210",
		Status:           domain.StatusPending,
		Advisor:          models.StageDecision{Status: domain.StatusPending},
		Hod:              models.StageDecision{Status: domain.StatusPending},
		Warden:           models.StageDecision{Status: domain.StatusPending},
		ScanStatus:       domain.ScanNotScanned,
	})
}

func approve() *DecideInput {
	return &DecideInput{Action: "approve"}
}

func TestCreate_OnlyStudents(t *testing.T) {
	svc, _, _ := newLeaveFixtures()

	input := &CreateLeaveInput{
		FromDate:         time.Now().Add(24 * time.Hour),
		ToDate:           time.Now().Add(48 * time.Hour),
		Reason:           "checkup",
		Destination:      "city hospital",
		EmergencyContact: "9876543210",
	}

	if _, err := svc.Create(context.Background(), input, advisorActor); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for advisor, got %v", err)
	}

	leave, err := svc.Create(context.Background(), input, studentActor)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if leave.StudentID != studentActor.UserID {
		t.Errorf("leave owned by %d, want %d", leave.StudentID, studentActor.UserID)
	}
	if leave.Status != domain.StatusPending {
		t.Errorf("new leave status = %q, want pending", leave.Status)
	}
	if leave.ScanStatus != domain.ScanNotScanned {
		t.Errorf("new leave scan status = %q, want not_scanned", leave.ScanStatus)
	}
	for _, stage := range domain.StageOrder {
		if got := leave.StageFor(stage).Status; got != domain.StatusPending {
			t.Errorf("stage %s status = %q, want pending", stage, got)
		}
	}
}

func TestCreate_RejectsBadDates(t *testing.T) {
	svc, _, _ := newLeaveFixtures()

	input := &CreateLeaveInput{
		FromDate:         time.Now().Add(48 * time.Hour),
		ToDate:           time.Now().Add(24 * time.Hour),
		Reason:           "trip",
		Destination:      "hills",
		EmergencyContact: "9876543210",
	}
	if _, err := svc.Create(context.Background(), input, studentActor); err == nil {
		t.Fatal("expected error for to date before from date")
	}

	input.FromDate = time.Now().Add(-24 * time.Hour)
	input.ToDate = time.Now().Add(24 * time.Hour)
	if _, err := svc.Create(context.Background(), input, studentActor); err == nil {
		t.Fatal("expected error for from date in the past")
	}
}

func TestCreate_RejectsBlankFields(t *testing.T) {
	svc, _, _ := newLeaveFixtures()

	input := &CreateLeaveInput{
		FromDate:         time.Now().Add(24 * time.Hour),
		ToDate:           time.Now().Add(48 * time.Hour),
		Reason:           "   ",
		Destination:      "somewhere",
		EmergencyContact: "9876543210",
	}
	if _, err := svc.Create(context.Background(), input, studentActor); err == nil {
		t.Fatal("expected error for whitespace-only reason")
	}
}

func TestDecide_FullChainMintsToken(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)

	steps := []struct {
		stage domain.Stage
		actor domain.Identity
	}{
		{domain.StageAdvisor, advisorActor},
		{domain.StageHOD, hodActor},
		{domain.StageWarden, wardenActor},
	}

	for _, step := range steps {
		updated, err := svc.Decide(context.Background(), leave.ID, step.stage, step.actor, approve())
		if err != nil {
			t.Fatalf("decide %s failed: %v", step.stage, err)
		}
		if updated.Status != updated.DeriveStatus() {
			t.Errorf("after %s: stored status %q diverges from derived %q",
				step.stage, updated.Status, updated.DeriveStatus())
		}
	}

	final, _ := leaveRepo.GetByID(context.Background(), leave.ID)
	if final.Status != domain.StatusApproved {
		t.Fatalf("final status = %q, want approved", final.Status)
	}
	if final.GateToken == nil {
		t.Fatal("approved leave has no gate token")
	}
	if !gatetoken.IsWellFormed(*final.GateToken) {
		t.Errorf("minted token %q is not well formed", *final.GateToken)
	}
	if final.GateTokenExpiry == nil || !final.GateTokenExpiry.Equal(final.ToDate) {
		t.Errorf("token expiry = %v, want leave end %v", final.GateTokenExpiry, final.ToDate)
	}
}

func TestDecide_NoTokenBeforeWarden(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)

	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageAdvisor, advisorActor, approve()); err != nil {
		t.Fatalf("advisor approve failed: %v", err)
	}
	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageHOD, hodActor, approve()); err != nil {
		t.Fatalf("hod approve failed: %v", err)
	}

	got, _ := leaveRepo.GetByID(context.Background(), leave.ID)
	if got.GateToken != nil {
		t.Error("gate token minted before warden approval")
	}
	if got.Status != domain.StatusPending {
		t.Errorf("status = %q before warden decision, want pending", got.Status)
	}
}

func TestDecide_EnforcesStageOrder(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)

	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageHOD, hodActor, approve()); !errors.Is(err, domain.ErrStagePrerequisiteNotMet) {
		t.Fatalf("hod before advisor: got %v, want ErrStagePrerequisiteNotMet", err)
	}
	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageWarden, wardenActor, approve()); !errors.Is(err, domain.ErrStagePrerequisiteNotMet) {
		t.Fatalf("warden before advisor: got %v, want ErrStagePrerequisiteNotMet", err)
	}
}

func TestDecide_EnforcesDesignatedRole(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)

	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageAdvisor, wardenActor, approve()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("warden on advisor stage: got %v, want ErrUnauthorized", err)
	}
	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageAdvisor, studentActor, approve()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("student on advisor stage: got %v, want ErrUnauthorized", err)
	}
}

func TestDecide_AdvisorScopedToRoster(t *testing.T) {
	svc, leaveRepo, userRepo := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)

	otherAdvisor := domain.Identity{UserID: 99, Username: "advisor2", Role: domain.RoleAdvisor}
	userRepo.users[99] = &models.User{ID: 99, Username: "advisor2", Role: string(domain.RoleAdvisor), IsActive: true}

	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageAdvisor, otherAdvisor, approve()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("off-roster advisor: got %v, want ErrUnauthorized", err)
	}
}

func TestDecide_StageDecisionIsFinal(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)

	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageAdvisor, advisorActor, approve()); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}
	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageAdvisor, advisorActor, approve()); !errors.Is(err, domain.ErrStageAlreadyDecided) {
		t.Fatalf("second decision: got %v, want ErrStageAlreadyDecided", err)
	}
}

func TestDecide_RejectionShortCircuits(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)

	updated, err := svc.Decide(context.Background(), leave.ID, domain.StageAdvisor, advisorActor,
		&DecideInput{Action: "reject", Comment: "dates clash with exams"})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if updated.Status != domain.StatusRejected {
		t.Fatalf("status after rejection = %q, want rejected", updated.Status)
	}
	if updated.GateToken != nil {
		t.Error("rejected leave has a gate token")
	}
	if got := updated.Hod.Status; got != domain.StatusPending {
		t.Errorf("hod stage after advisor rejection = %q, want pending", got)
	}

	// The chain is closed: later stages can never act on a finalized request.
	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageHOD, hodActor, approve()); !errors.Is(err, domain.ErrAlreadyDecided) {
		t.Fatalf("hod after rejection: got %v, want ErrAlreadyDecided", err)
	}
}

func TestDecide_UnknownStageAndAction(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)

	if _, err := svc.Decide(context.Background(), leave.ID, domain.Stage("principal"), advisorActor, approve()); !errors.Is(err, domain.ErrUnknownStage) {
		t.Fatalf("unknown stage: got %v, want ErrUnknownStage", err)
	}
	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageAdvisor, advisorActor, &DecideInput{Action: "maybe"}); err == nil {
		t.Fatal("expected validation error for unknown action")
	}
}

func TestDecide_RemintsOnTokenCollision(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)
	leave.Advisor.Status = domain.StatusApproved
	leave.Hod.Status = domain.StatusApproved

	leaveRepo.decideCollisions = 2

	updated, err := svc.Decide(context.Background(), leave.ID, domain.StageWarden, wardenActor, approve())
	if err != nil {
		t.Fatalf("warden approve failed despite re-mint retries: %v", err)
	}
	if updated.GateToken == nil {
		t.Fatal("no token after re-mint")
	}
	if leaveRepo.decideCollisions != 0 {
		t.Errorf("expected both collisions consumed, %d left", leaveRepo.decideCollisions)
	}
}

// racyLeaveRepo simulates losing the write race: the conditional update
// never applies even though the preceding read passed every check.
type racyLeaveRepo struct {
	*fakeLeaveRepo
}

func (r *racyLeaveRepo) DecideStage(ctx context.Context, leaveID uint, stage domain.Stage, upd *repositories.StageUpdate) (bool, error) {
	return false, nil
}

func TestDecide_LostRaceSurfacesAsAlreadyDecided(t *testing.T) {
	leaveRepo := newFakeLeaveRepo()
	userRepo := newFakeUserRepo()
	userRepo.users[studentID] = &models.User{
		ID: studentID, Role: string(domain.RoleStudent), AdvisorID: &advisorID, IsActive: true,
	}
	svc := NewLeaveService(&racyLeaveRepo{leaveRepo}, userRepo)
	leave := pendingLeave(leaveRepo)

	if _, err := svc.Decide(context.Background(), leave.ID, domain.StageAdvisor, advisorActor, approve()); !errors.Is(err, domain.ErrStageAlreadyDecided) {
		t.Fatalf("lost race: got %v, want ErrStageAlreadyDecided", err)
	}
}

func TestGetByID_Visibility(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	leave := pendingLeave(leaveRepo)

	otherStudent := domain.Identity{UserID: 77, Role: domain.RoleStudent}
	if _, err := svc.GetByID(context.Background(), leave.ID, otherStudent); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("other student: got %v, want ErrUnauthorized", err)
	}

	guard := domain.Identity{UserID: 88, Role: domain.RoleGuard}
	if _, err := svc.GetByID(context.Background(), leave.ID, guard); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("guard: got %v, want ErrUnauthorized", err)
	}

	if _, err := svc.GetByID(context.Background(), leave.ID, studentActor); err != nil {
		t.Fatalf("owner: unexpected error %v", err)
	}
	if _, err := svc.GetByID(context.Background(), leave.ID, wardenActor); err != nil {
		t.Fatalf("warden: unexpected error %v", err)
	}

	if _, err := svc.GetByID(context.Background(), 9999, studentActor); !errors.Is(err, domain.ErrLeaveNotFound) {
		t.Fatalf("missing leave: got %v, want ErrLeaveNotFound", err)
	}
}

func TestListVisible_GuardHasNone(t *testing.T) {
	svc, leaveRepo, _ := newLeaveFixtures()
	pendingLeave(leaveRepo)

	guard := domain.Identity{UserID: 88, Role: domain.RoleGuard}
	if _, _, err := svc.ListVisible(context.Background(), guard, &ListInput{Limit: 20}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("guard list: got %v, want ErrUnauthorized", err)
	}
}
