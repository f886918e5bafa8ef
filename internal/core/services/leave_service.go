package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"hostelpass/internal/adapters/persistence/models"
	"hostelpass/internal/adapters/persistence/repositories"
	"hostelpass/internal/core/domain"
	"hostelpass/internal/pkg/gatetoken"
	"hostelpass/internal/pkg/validation"

	"gorm.io/gorm"
)

// maxMintAttempts bounds the re-mint loop when the gate token unique index
// reports a collision.
const maxMintAttempts = 3

// LeaveService enforces the three-stage approval chain on leave requests.
// Every operation takes the caller's identity explicitly and validates
// preconditions against a fresh read; writes are conditional, so a lost
// race surfaces as the same error as a violated precondition.
type LeaveService struct {
	leaveRepo repositories.LeaveRepository
	userRepo  repositories.UserRepository
}

// NewLeaveService creates a new leave service
func NewLeaveService(leaveRepo repositories.LeaveRepository, userRepo repositories.UserRepository) *LeaveService {
	return &LeaveService{
		leaveRepo: leaveRepo,
		userRepo:  userRepo,
	}
}

// CreateLeaveInput represents create leave request input
type CreateLeaveInput struct {
	FromDate         time.Time `json:"from_date" validate:"required"`
	ToDate           time.Time `json:"to_date" validate:"required"`
	Reason           string    `json:"reason" validate:"required"`
	Destination      string    `json:"destination" validate:"required"`
	EmergencyContact string    `json:"emergency_contact" validate:"required"`
}

// Create creates a new leave request owned by the calling student.
func (s *LeaveService) Create(ctx context.Context, input *CreateLeaveInput, actor domain.Identity) (*models.LeaveRequest, error) {
	if actor.Role != domain.RoleStudent {
		return nil, domain.ErrUnauthorized
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	destination := strings.TrimSpace(input.Destination)
	contact := strings.TrimSpace(input.EmergencyContact)
	if reason == "" || destination == "" || contact == "" {
		return nil, domain.ErrInvalidInput
	}

	if !input.ToDate.After(input.FromDate) {
		return nil, &validation.Error{Message: "to date must be after from date"}
	}
	if input.FromDate.Before(time.Now()) {
		return nil, &validation.Error{Message: "from date cannot be in the past"}
	}

	leave := &models.LeaveRequest{
		StudentID:        actor.UserID,
		FromDate:         input.FromDate,
		ToDate:           input.ToDate,
		Reason:           reason,
		Destination:      destination,
		EmergencyContact: contact,
		Status:           domain.StatusPending,
		Advisor:          models.StageDecision{Status: domain.StatusPending},
		Hod:              models.StageDecision{Status: domain.StatusPending},
		Warden:           models.StageDecision{Status: domain.StatusPending},
		ScanStatus:       domain.ScanNotScanned,
	}

	if err := s.leaveRepo.Create(ctx, leave); err != nil {
		return nil, err
	}

	return leave, nil
}

// DecideInput represents an approve/reject action on one stage
type DecideInput struct {
	Action  string `json:"action" validate:"required,oneof=approve reject"`
	Comment string `json:"comment,omitempty"`
}

// Decide applies one approval decision. Preconditions, in order: the caller
// holds the stage's designated role (advisors additionally only for their
// roster), the request is still pending overall, every earlier stage is
// approved, and the target stage is still pending. On warden approval a gate
// token is minted and the request becomes approved; on any rejection the
// request becomes rejected immediately and later stages stay pending forever.
func (s *LeaveService) Decide(ctx context.Context, leaveID uint, stage domain.Stage, actor domain.Identity, input *DecideInput) (*models.LeaveRequest, error) {
	if stage.Index() < 0 {
		return nil, domain.ErrUnknownStage
	}
	if actor.Role != stage.DesignatedRole() {
		return nil, domain.ErrUnauthorized
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	leave, err := s.leaveRepo.GetByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeaveNotFound
		}
		return nil, err
	}

	if stage == domain.StageAdvisor {
		if err := s.checkRoster(ctx, leave, actor.UserID); err != nil {
			return nil, err
		}
	}

	if leave.Status != domain.StatusPending {
		return nil, domain.ErrAlreadyDecided
	}
	for _, earlier := range domain.StageOrder {
		if earlier == stage {
			break
		}
		if leave.StageFor(earlier).Status != domain.StatusApproved {
			return nil, domain.ErrStagePrerequisiteNotMet
		}
	}
	if leave.StageFor(stage).Status != domain.StatusPending {
		return nil, domain.ErrStageAlreadyDecided
	}

	approve := input.Action == "approve"
	now := time.Now()

	// Compute the derived overall status the write must carry.
	next := *leave
	decided := domain.StatusRejected
	if approve {
		decided = domain.StatusApproved
	}
	next.StageFor(stage).Status = decided
	overall := next.DeriveStatus()

	upd := &repositories.StageUpdate{
		Status:    decided,
		Comment:   strings.TrimSpace(input.Comment),
		DecidedBy: actor.UserID,
		DecidedAt: now,
		Overall:   overall,
	}

	mintToken := approve && stage == domain.StageWarden && overall == domain.StatusApproved

	applied := false
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		if mintToken {
			token := gatetoken.Mint(leave.StudentID, leave.ID)
			expiry := leave.ToDate
			upd.GateToken = &token
			upd.GateTokenExpiry = &expiry
		}

		applied, err = s.leaveRepo.DecideStage(ctx, leave.ID, stage, upd)
		if err != nil {
			// A collision on the gate token unique index gets a fresh mint.
			if mintToken && errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return nil, err
		}
		break
	}
	if err != nil {
		return nil, err
	}
	if !applied {
		// The row moved between read and write: someone else decided first.
		return nil, domain.ErrStageAlreadyDecided
	}

	return s.leaveRepo.GetByID(ctx, leave.ID)
}

// checkRoster verifies the leave's student is assigned to the advisor.
// Failures report Unauthorized so callers cannot probe request existence.
func (s *LeaveService) checkRoster(ctx context.Context, leave *models.LeaveRequest, advisorID uint) error {
	student := leave.Student
	if student == nil {
		loaded, err := s.userRepo.GetByID(ctx, leave.StudentID)
		if err != nil {
			return domain.ErrUnauthorized
		}
		student = loaded
	}
	if student.AdvisorID == nil || *student.AdvisorID != advisorID {
		return domain.ErrUnauthorized
	}
	return nil
}

// GetByID returns one leave request subject to the caller's visibility:
// students their own, advisors their roster, HOD/warden/admin any. Gate
// staff have no visibility into approval records.
func (s *LeaveService) GetByID(ctx context.Context, leaveID uint, actor domain.Identity) (*models.LeaveRequest, error) {
	leave, err := s.leaveRepo.GetByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeaveNotFound
		}
		return nil, err
	}

	switch actor.Role {
	case domain.RoleStudent:
		if leave.StudentID != actor.UserID {
			return nil, domain.ErrUnauthorized
		}
	case domain.RoleAdvisor:
		if err := s.checkRoster(ctx, leave, actor.UserID); err != nil {
			return nil, err
		}
	case domain.RoleHOD, domain.RoleWarden, domain.RoleAdmin:
		// Unscoped.
	default:
		return nil, domain.ErrUnauthorized
	}

	return leave, nil
}

// ListInput represents list input
type ListInput struct {
	Status string
	Offset int
	Limit  int
}

// ListVisible lists the subset of leave requests the caller may see,
// newest created first.
func (s *LeaveService) ListVisible(ctx context.Context, actor domain.Identity, input *ListInput) ([]*models.LeaveRequest, int64, error) {
	switch actor.Role {
	case domain.RoleStudent:
		return s.leaveRepo.ListByStudent(ctx, actor.UserID, input.Status, input.Offset, input.Limit)
	case domain.RoleAdvisor:
		return s.leaveRepo.ListByAdvisorRoster(ctx, actor.UserID, input.Status, input.Offset, input.Limit)
	case domain.RoleHOD:
		return s.leaveRepo.ListByStageApproved(ctx, domain.StageAdvisor, input.Status, input.Offset, input.Limit)
	case domain.RoleWarden:
		return s.leaveRepo.ListByStageApproved(ctx, domain.StageHOD, input.Status, input.Offset, input.Limit)
	case domain.RoleAdmin:
		return s.leaveRepo.List(ctx, input.Status, input.Offset, input.Limit)
	}
	return nil, 0, domain.ErrUnauthorized
}
