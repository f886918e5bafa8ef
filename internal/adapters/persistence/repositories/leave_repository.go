package repositories

import (
	"context"
	"time"

	"hostelpass/internal/adapters/persistence/models"
	"hostelpass/internal/core/domain"

	"gorm.io/gorm"
)

// leaveRepository implements LeaveRepository interface
type leaveRepository struct {
	db *gorm.DB
}

// NewLeaveRepository creates a new leave request repository
func NewLeaveRepository(db *gorm.DB) LeaveRepository {
	return &leaveRepository{db: db}
}

// Create creates a new leave request
func (r *leaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	return r.db.WithContext(ctx).Create(leave).Error
}

// GetByID gets a leave request by ID with the student loaded
func (r *leaveRepository) GetByID(ctx context.Context, id uint) (*models.LeaveRequest, error) {
	var leave models.LeaveRequest
	err := r.db.WithContext(ctx).
		Preload("Student").
		First(&leave, id).Error
	if err != nil {
		return nil, err
	}
	return &leave, nil
}

// GetByToken gets a leave request by its gate token
func (r *leaveRepository) GetByToken(ctx context.Context, token string) (*models.LeaveRequest, error) {
	var leave models.LeaveRequest
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("gate_token = ?", token).
		First(&leave).Error
	if err != nil {
		return nil, err
	}
	return &leave, nil
}

// ListByStudent lists a student's own leave requests, newest first
func (r *leaveRepository) ListByStudent(ctx context.Context, studentID uint, status string, offset, limit int) ([]*models.LeaveRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LeaveRequest{}).Where("student_id = ?", studentID)
	return r.page(ctx, query, status, offset, limit)
}

// ListByAdvisorRoster lists leave requests from students assigned to the
// advisor, newest first
func (r *leaveRepository) ListByAdvisorRoster(ctx context.Context, advisorID uint, status string, offset, limit int) ([]*models.LeaveRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LeaveRequest{}).
		Joins("JOIN users ON users.id = leave_requests.student_id").
		Where("users.advisor_id = ?", advisorID)
	return r.page(ctx, query, status, offset, limit)
}

// ListByStageApproved lists leave requests whose given stage is already
// approved (the queue for the next stage's approver), newest first
func (r *leaveRepository) ListByStageApproved(ctx context.Context, stage domain.Stage, status string, offset, limit int) ([]*models.LeaveRequest, int64, error) {
	col := models.StageColumnPrefix(stage) + "status"
	query := r.db.WithContext(ctx).Model(&models.LeaveRequest{}).
		Where(col+" = ?", domain.StatusApproved)
	return r.page(ctx, query, status, offset, limit)
}

// List lists all leave requests, newest first
func (r *leaveRepository) List(ctx context.Context, status string, offset, limit int) ([]*models.LeaveRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LeaveRequest{})
	return r.page(ctx, query, status, offset, limit)
}

func (r *leaveRepository) page(ctx context.Context, query *gorm.DB, status string, offset, limit int) ([]*models.LeaveRequest, int64, error) {
	if status != "" {
		query = query.Where("leave_requests.status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var leaves []*models.LeaveRequest
	err := query.
		Preload("Student").
		Order("leave_requests.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&leaves).Error

	return leaves, total, err
}

// DecideStage applies one approval decision with an optimistic condition:
// the write succeeds only if the target stage is still pending and the
// overall status is still pending. applied=false means the row moved since
// it was read (or the precondition never held) and nothing was written.
func (r *leaveRepository) DecideStage(ctx context.Context, leaveID uint, stage domain.Stage, upd *StageUpdate) (bool, error) {
	prefix := models.StageColumnPrefix(stage)

	values := map[string]interface{}{
		prefix + "status":     upd.Status,
		prefix + "comment":    upd.Comment,
		prefix + "decided_by": upd.DecidedBy,
		prefix + "decided_at": upd.DecidedAt,
		"status":              upd.Overall,
	}
	if upd.GateToken != nil {
		values["gate_token"] = *upd.GateToken
		values["gate_token_expiry"] = upd.GateTokenExpiry
	}

	res := r.db.WithContext(ctx).
		Model(&models.LeaveRequest{}).
		Where("id = ?", leaveID).
		Where(prefix+"status = ?", domain.StatusPending).
		Where("status = ?", domain.StatusPending).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApplyScan advances the scan state machine with an optimistic condition:
// the write succeeds only if the row still carries the scan state observed
// at read time and the request is still approved.
func (r *leaveRepository) ApplyScan(ctx context.Context, leaveID uint, upd *ScanUpdate) (bool, error) {
	values := map[string]interface{}{
		"scan_status": upd.ToState,
	}
	switch upd.ToState {
	case domain.ScanExited:
		values["exited_at"] = upd.At
	case domain.ScanReturned:
		values["returned_at"] = upd.At
	}

	res := r.db.WithContext(ctx).
		Model(&models.LeaveRequest{}).
		Where("id = ?", leaveID).
		Where("scan_status = ?", upd.FromState).
		Where("status = ?", domain.StatusApproved).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountByStatus counts leave requests in an overall status
func (r *leaveRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LeaveRequest{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// CountPendingAtStage counts requests waiting on the given stage: the stage
// itself pending, all earlier stages approved, overall still pending.
func (r *leaveRepository) CountPendingAtStage(ctx context.Context, stage domain.Stage) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LeaveRequest{}).
		Where("status = ?", domain.StatusPending).
		Where(models.StageColumnPrefix(stage)+"status = ?", domain.StatusPending)

	for _, earlier := range domain.StageOrder {
		if earlier == stage {
			break
		}
		query = query.Where(models.StageColumnPrefix(earlier)+"status = ?", domain.StatusApproved)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// ListOverdue lists approved requests whose leave window has elapsed
// without a recorded return
func (r *leaveRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*models.LeaveRequest, error) {
	var leaves []*models.LeaveRequest
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("status = ?", domain.StatusApproved).
		Where("to_date < ?", asOf).
		Where("scan_status <> ?", domain.ScanReturned).
		Order("to_date ASC").
		Find(&leaves).Error
	return leaves, err
}
