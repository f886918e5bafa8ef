package services

import (
	"context"
	"time"

	"hostelpass/internal/core/domain"

	"gorm.io/gorm"
)

// DashboardService handles dashboard operations
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// ============================================================
// Admin Dashboard
// ============================================================

// AdminDashboardData represents admin dashboard data
type AdminDashboardData struct {
	// User Statistics
	TotalUsers    int64 `json:"total_users"`
	TotalStudents int64 `json:"total_students"`
	TotalAdvisors int64 `json:"total_advisors"`
	TotalGuards   int64 `json:"total_guards"`

	// Leave Statistics
	TotalLeaves    int64 `json:"total_leaves"`
	PendingLeaves  int64 `json:"pending_leaves"`
	ApprovedLeaves int64 `json:"approved_leaves"`
	RejectedLeaves int64 `json:"rejected_leaves"`

	// Pipeline: requests waiting at each stage
	AwaitingAdvisor int64 `json:"awaiting_advisor"`
	AwaitingHod     int64 `json:"awaiting_hod"`
	AwaitingWarden  int64 `json:"awaiting_warden"`

	// Gate Activity
	CurrentlyOut int64 `json:"currently_out"`
	ScansToday   int64 `json:"scans_today"`

	// Recent Activity
	RecentLeaves []LeaveSummary `json:"recent_leaves"`
}

// LeaveSummary represents leave request summary
type LeaveSummary struct {
	ID          uint      `json:"id"`
	StudentName string    `json:"student_name"`
	StudentReg  string    `json:"student_reg"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	ScanStatus  string    `json:"scan_status"`
	FromDate    time.Time `json:"from_date"`
	ToDate      time.Time `json:"to_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// GetAdminDashboard returns admin dashboard data
func (s *DashboardService) GetAdminDashboard(ctx context.Context) (*AdminDashboardData, error) {
	data := &AdminDashboardData{}

	// User counts by role
	s.db.WithContext(ctx).Table("users").Where("deleted_at IS NULL").Count(&data.TotalUsers)
	s.db.WithContext(ctx).Table("users").Where("role = ? AND deleted_at IS NULL", domain.RoleStudent).Count(&data.TotalStudents)
	s.db.WithContext(ctx).Table("users").Where("role = ? AND deleted_at IS NULL", domain.RoleAdvisor).Count(&data.TotalAdvisors)
	s.db.WithContext(ctx).Table("users").Where("role = ? AND deleted_at IS NULL", domain.RoleGuard).Count(&data.TotalGuards)

	// Leave counts by status
	s.db.WithContext(ctx).Table("leave_requests").Count(&data.TotalLeaves)
	s.db.WithContext(ctx).Table("leave_requests").Where("status = ?", domain.StatusPending).Count(&data.PendingLeaves)
	s.db.WithContext(ctx).Table("leave_requests").Where("status = ?", domain.StatusApproved).Count(&data.ApprovedLeaves)
	s.db.WithContext(ctx).Table("leave_requests").Where("status = ?", domain.StatusRejected).Count(&data.RejectedLeaves)

	// Pipeline counts
	s.db.WithContext(ctx).Table("leave_requests").
		Where("status = ? AND advisor_status = ?", domain.StatusPending, domain.StatusPending).
		Count(&data.AwaitingAdvisor)
	s.db.WithContext(ctx).Table("leave_requests").
		Where("status = ? AND advisor_status = ? AND hod_status = ?",
			domain.StatusPending, domain.StatusApproved, domain.StatusPending).
		Count(&data.AwaitingHod)
	s.db.WithContext(ctx).Table("leave_requests").
		Where("status = ? AND hod_status = ? AND warden_status = ?",
			domain.StatusPending, domain.StatusApproved, domain.StatusPending).
		Count(&data.AwaitingWarden)

	// Gate activity
	s.db.WithContext(ctx).Table("leave_requests").
		Where("scan_status = ?", domain.ScanExited).
		Count(&data.CurrentlyOut)

	startOfDay := time.Now().Truncate(24 * time.Hour)
	s.db.WithContext(ctx).Table("scan_events").
		Where("recorded_at >= ?", startOfDay).
		Count(&data.ScansToday)

	// Recent leave requests
	data.RecentLeaves = s.recentLeaves(ctx, "", 0, 10)

	return data, nil
}

// ============================================================
// Approver Dashboard (advisor / hod / warden)
// ============================================================

// ApproverDashboardData represents an approver's dashboard data
type ApproverDashboardData struct {
	Stage         string `json:"stage"`
	AwaitingMe    int64  `json:"awaiting_me"`
	ApprovedByMe  int64  `json:"approved_by_me"`
	RejectedByMe  int64  `json:"rejected_by_me"`
	DecidedToday  int64  `json:"decided_today"`

	// Oldest waiting requests first
	WaitingLeaves []LeaveSummary `json:"waiting_leaves"`
}

// GetApproverDashboard returns dashboard data for one approval stage.
// For an advisor the queue is restricted to the advisor's own roster.
func (s *DashboardService) GetApproverDashboard(ctx context.Context, stage domain.Stage, approverID uint) (*ApproverDashboardData, error) {
	data := &ApproverDashboardData{Stage: string(stage)}

	prefix := string(stage) + "_"

	waiting := s.db.WithContext(ctx).Table("leave_requests").
		Where("status = ?", domain.StatusPending).
		Where(prefix+"status = ?", domain.StatusPending)
	switch stage {
	case domain.StageAdvisor:
		waiting = waiting.
			Joins("JOIN users ON users.id = leave_requests.student_id").
			Where("users.advisor_id = ?", approverID)
	case domain.StageHOD:
		waiting = waiting.Where("advisor_status = ?", domain.StatusApproved)
	case domain.StageWarden:
		waiting = waiting.Where("hod_status = ?", domain.StatusApproved)
	}
	waiting.Count(&data.AwaitingMe)

	s.db.WithContext(ctx).Table("leave_requests").
		Where(prefix+"decided_by = ? AND "+prefix+"status = ?", approverID, domain.StatusApproved).
		Count(&data.ApprovedByMe)
	s.db.WithContext(ctx).Table("leave_requests").
		Where(prefix+"decided_by = ? AND "+prefix+"status = ?", approverID, domain.StatusRejected).
		Count(&data.RejectedByMe)

	startOfDay := time.Now().Truncate(24 * time.Hour)
	s.db.WithContext(ctx).Table("leave_requests").
		Where(prefix+"decided_by = ? AND "+prefix+"decided_at >= ?", approverID, startOfDay).
		Count(&data.DecidedToday)

	data.WaitingLeaves = s.waitingLeaves(ctx, stage, approverID, 10)

	return data, nil
}

// ============================================================
// Student Dashboard
// ============================================================

// StudentDashboardData represents a student's dashboard data
type StudentDashboardData struct {
	TotalLeaves    int64 `json:"total_leaves"`
	PendingLeaves  int64 `json:"pending_leaves"`
	ApprovedLeaves int64 `json:"approved_leaves"`
	RejectedLeaves int64 `json:"rejected_leaves"`

	// Most recent requests
	RecentLeaves []LeaveSummary `json:"recent_leaves"`
}

// GetStudentDashboard returns a student's own dashboard data
func (s *DashboardService) GetStudentDashboard(ctx context.Context, studentID uint) (*StudentDashboardData, error) {
	data := &StudentDashboardData{}

	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Table("leave_requests").Where("student_id = ?", studentID)
	}
	base().Count(&data.TotalLeaves)
	base().Where("status = ?", domain.StatusPending).Count(&data.PendingLeaves)
	base().Where("status = ?", domain.StatusApproved).Count(&data.ApprovedLeaves)
	base().Where("status = ?", domain.StatusRejected).Count(&data.RejectedLeaves)

	data.RecentLeaves = s.recentLeaves(ctx, "student_id = ?", studentID, 5)

	return data, nil
}

// ============================================================
// Guard Dashboard
// ============================================================

// GuardDashboardData represents a guard's dashboard data
type GuardDashboardData struct {
	ScansToday    int64 `json:"scans_today"`
	MyScansToday  int64 `json:"my_scans_today"`
	RejectedToday int64 `json:"rejected_today"`
	CurrentlyOut  int64 `json:"currently_out"`
}

// GetGuardDashboard returns gate activity counters for a guard
func (s *DashboardService) GetGuardDashboard(ctx context.Context, guardID uint) (*GuardDashboardData, error) {
	data := &GuardDashboardData{}

	startOfDay := time.Now().Truncate(24 * time.Hour)
	s.db.WithContext(ctx).Table("scan_events").
		Where("recorded_at >= ?", startOfDay).
		Count(&data.ScansToday)
	s.db.WithContext(ctx).Table("scan_events").
		Where("guard_id = ? AND recorded_at >= ?", guardID, startOfDay).
		Count(&data.MyScansToday)
	s.db.WithContext(ctx).Table("scan_events").
		Where("is_valid = ? AND recorded_at >= ?", false, startOfDay).
		Count(&data.RejectedToday)
	s.db.WithContext(ctx).Table("leave_requests").
		Where("scan_status = ?", domain.ScanExited).
		Count(&data.CurrentlyOut)

	return data, nil
}

// recentLeaves lists the newest leave requests matching an optional filter.
func (s *DashboardService) recentLeaves(ctx context.Context, filter string, arg interface{}, limit int) []LeaveSummary {
	q := s.db.WithContext(ctx).Table("leave_requests").
		Select("leave_requests.id, users.full_name as student_name, users.reg_no as student_reg, leave_requests.destination, leave_requests.status, leave_requests.scan_status, leave_requests.from_date, leave_requests.to_date, leave_requests.created_at").
		Joins("LEFT JOIN users ON leave_requests.student_id = users.id").
		Order("leave_requests.created_at DESC").
		Limit(limit)
	if filter != "" {
		q = q.Where("leave_requests."+filter, arg)
	}

	var rows []LeaveSummary
	q.Scan(&rows)
	return rows
}

// waitingLeaves lists requests waiting at a stage, oldest first.
func (s *DashboardService) waitingLeaves(ctx context.Context, stage domain.Stage, approverID uint, limit int) []LeaveSummary {
	prefix := string(stage) + "_"

	q := s.db.WithContext(ctx).Table("leave_requests").
		Select("leave_requests.id, users.full_name as student_name, users.reg_no as student_reg, leave_requests.destination, leave_requests.status, leave_requests.scan_status, leave_requests.from_date, leave_requests.to_date, leave_requests.created_at").
		Joins("JOIN users ON leave_requests.student_id = users.id").
		Where("leave_requests.status = ?", domain.StatusPending).
		Where(prefix+"status = ?", domain.StatusPending).
		Order("leave_requests.created_at ASC").
		Limit(limit)
	switch stage {
	case domain.StageAdvisor:
		q = q.Where("users.advisor_id = ?", approverID)
	case domain.StageHOD:
		q = q.Where("advisor_status = ?", domain.StatusApproved)
	case domain.StageWarden:
		q = q.Where("hod_status = ?", domain.StatusApproved)
	}

	var rows []LeaveSummary
	q.Scan(&rows)
	return rows
}
