package services

import (
	"context"
	"errors"
	"time"

	"hostelpass/internal/adapters/persistence/models"
	"hostelpass/internal/adapters/persistence/repositories"
	"hostelpass/internal/core/domain"
	"hostelpass/internal/pkg/gatetoken"

	"gorm.io/gorm"
)

// ScanHistoryLimit caps a guard's scan history listing.
const ScanHistoryLimit = 100

// ScanService classifies presented gate tokens into exit or return events.
// The direction is derived from the request's current scan state, never
// supplied by the guard, so a return can never be mis-recorded as an exit.
// Every attempt, valid or not, appends exactly one ScanEvent; a rejected
// attempt never mutates the leave request.
type ScanService struct {
	leaveRepo repositories.LeaveRepository
	scanRepo  repositories.ScanEventRepository
}

// NewScanService creates a new scan service
func NewScanService(leaveRepo repositories.LeaveRepository, scanRepo repositories.ScanEventRepository) *ScanService {
	return &ScanService{
		leaveRepo: leaveRepo,
		scanRepo:  scanRepo,
	}
}

// ProcessScan validates the presented token against the leave request it
// belongs to and advances the scan state machine one step:
// not_scanned → exited (exit) → returned (return). now is taken as an
// argument so the leave-window check is a pure data comparison.
func (s *ScanService) ProcessScan(ctx context.Context, token string, staff domain.Identity, now time.Time) (*domain.ScanOutcome, error) {
	if staff.Role != domain.RoleGuard {
		return nil, domain.ErrUnauthorized
	}

	if !gatetoken.IsWellFormed(token) {
		if err := s.logRejected(ctx, nil, staff.UserID, token, models.ScanFailMalformedToken, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrMalformedToken
	}

	leave, err := s.leaveRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := s.logRejected(ctx, nil, staff.UserID, token, models.ScanFailUnknownToken, now); err != nil {
				return nil, err
			}
			return nil, domain.ErrUnknownToken
		}
		return nil, err
	}

	if leave.Status != domain.StatusApproved {
		if err := s.logRejected(ctx, &leave.ID, staff.UserID, token, models.ScanFailNotApproved, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotApproved
	}

	expired := leave.GateTokenExpiry != nil && now.After(*leave.GateTokenExpiry)
	if expired || !leave.WindowContains(now) {
		if err := s.logRejected(ctx, &leave.ID, staff.UserID, token, models.ScanFailOutsideLeaveWindow, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrOutsideLeaveWindow
	}

	var direction, toState string
	switch leave.ScanStatus {
	case domain.ScanNotScanned:
		direction, toState = domain.DirectionExit, domain.ScanExited
	case domain.ScanExited:
		direction, toState = domain.DirectionReturn, domain.ScanReturned
	default:
		if err := s.logRejected(ctx, &leave.ID, staff.UserID, token, models.ScanFailCycleAlreadyComplete, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrCycleAlreadyComplete
	}

	applied, err := s.leaveRepo.ApplyScan(ctx, leave.ID, &repositories.ScanUpdate{
		FromState: leave.ScanStatus,
		ToState:   toState,
		At:        now,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost a race: the scan state moved after the read. Surface it as
		// the state having already advanced, with no mutation from this call.
		if err := s.logRejected(ctx, &leave.ID, staff.UserID, token, models.ScanFailCycleAlreadyComplete, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrCycleAlreadyComplete
	}

	event := &models.ScanEvent{
		LeaveID:    &leave.ID,
		GuardID:    staff.UserID,
		Token:      token,
		Direction:  direction,
		IsValid:    true,
		RecordedAt: now,
	}
	if err := s.scanRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	outcome := &domain.ScanOutcome{
		LeaveID:   leave.ID,
		Direction: direction,
		FromDate:  leave.FromDate,
		ToDate:    leave.ToDate,
		ScannedAt: now,
	}
	if leave.Student != nil {
		outcome.StudentName = leave.Student.FullName
		outcome.StudentReg = leave.Student.RegNo
	}

	return outcome, nil
}

// History lists the calling guard's own scan events, newest first, capped
// at ScanHistoryLimit.
func (s *ScanService) History(ctx context.Context, staff domain.Identity) ([]*models.ScanEvent, error) {
	if staff.Role != domain.RoleGuard {
		return nil, domain.ErrUnauthorized
	}
	return s.scanRepo.ListByGuard(ctx, staff.UserID, ScanHistoryLimit)
}

// logRejected appends the audit row for a rejected attempt.
func (s *ScanService) logRejected(ctx context.Context, leaveID *uint, guardID uint, token, reason string, now time.Time) error {
	return s.scanRepo.Create(ctx, &models.ScanEvent{
		LeaveID:       leaveID,
		GuardID:       guardID,
		Token:         token,
		IsValid:       false,
		FailureReason: reason,
		RecordedAt:    now,
	})
}
