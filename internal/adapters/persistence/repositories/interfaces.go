package repositories

import (
	"context"
	"time"

	"hostelpass/internal/adapters/persistence/models"
	"hostelpass/internal/core/domain"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, role string, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByRegNo(ctx context.Context, regNo string) (bool, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// StageUpdate carries the column values applied by one approval decision.
// Overall is the derived status that must be written in the same statement
// as the stage columns.
type StageUpdate struct {
	Status          string
	Comment         string
	DecidedBy       uint
	DecidedAt       time.Time
	Overall         string
	GateToken       *string
	GateTokenExpiry *time.Time
}

// ScanUpdate advances the scan state machine by one step. FromState is the
// state observed when the request was read; the update applies only if the
// row still carries it.
type ScanUpdate struct {
	FromState string
	ToState   string
	At        time.Time
}

// LeaveRepository defines leave request repository interface. DecideStage
// and ApplyScan are conditional writes: they return applied=false when the
// row no longer matches the observed state, so a lost race surfaces as the
// same error as a violated precondition.
type LeaveRepository interface {
	Create(ctx context.Context, leave *models.LeaveRequest) error
	GetByID(ctx context.Context, id uint) (*models.LeaveRequest, error)
	GetByToken(ctx context.Context, token string) (*models.LeaveRequest, error)
	ListByStudent(ctx context.Context, studentID uint, status string, offset, limit int) ([]*models.LeaveRequest, int64, error)
	ListByAdvisorRoster(ctx context.Context, advisorID uint, status string, offset, limit int) ([]*models.LeaveRequest, int64, error)
	ListByStageApproved(ctx context.Context, stage domain.Stage, status string, offset, limit int) ([]*models.LeaveRequest, int64, error)
	List(ctx context.Context, status string, offset, limit int) ([]*models.LeaveRequest, int64, error)
	DecideStage(ctx context.Context, leaveID uint, stage domain.Stage, upd *StageUpdate) (bool, error)
	ApplyScan(ctx context.Context, leaveID uint, upd *ScanUpdate) (bool, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountPendingAtStage(ctx context.Context, stage domain.Stage) (int64, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*models.LeaveRequest, error)
}

// ScanEventRepository defines the append-only scan audit interface.
// There is deliberately no update or delete method.
type ScanEventRepository interface {
	Create(ctx context.Context, event *models.ScanEvent) error
	ListByGuard(ctx context.Context, guardID uint, limit int) ([]*models.ScanEvent, error)
	ListByLeave(ctx context.Context, leaveID uint) ([]*models.ScanEvent, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
