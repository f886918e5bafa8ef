package models

import (
	"strings"
	"time"

	"hostelpass/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RegNo     string         `gorm:"uniqueIndex;size:20;not null" json:"reg_no"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	FullName  string         `gorm:"size:100;not null" json:"full_name"`
	Department string        `gorm:"size:100" json:"department"`
	Role      string         `gorm:"size:20;default:'STUDENT';index" json:"role"`
	AdvisorID *uint          `gorm:"index" json:"advisor_id,omitempty"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Advisor *User `gorm:"foreignKey:AdvisorID" json:"advisor,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID         uint      `json:"id"`
	RegNo      string    `json:"reg_no"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Department string    `json:"department,omitempty"`
	Role       string    `json:"role"`
	AdvisorID  *uint     `json:"advisor_id,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		RegNo:      u.RegNo,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Department: u.Department,
		Role:       u.Role,
		AdvisorID:  u.AdvisorID,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Leave Request Tables
// ============================================================

// StageDecision is one step of the three-stage approval chain. Status is
// pending until the designated approver decides; after that the block is
// immutable.
type StageDecision struct {
	Status    string     `gorm:"size:20;not null;default:'pending'" json:"status"`
	Comment   string     `gorm:"type:text" json:"comment,omitempty"`
	DecidedBy *uint      `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// LeaveRequest is the central entity: one exit-leave application moving
// through advisor → hod → warden, then through the gate.
type LeaveRequest struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	StudentID        uint      `gorm:"not null;index:idx_leaves_student_created" json:"student_id"`
	FromDate         time.Time `gorm:"not null" json:"from_date"`
	ToDate           time.Time `gorm:"not null" json:"to_date"`
	Reason           string    `gorm:"type:text;not null" json:"reason"`
	Destination      string    `gorm:"size:200;not null" json:"destination"`
	EmergencyContact string    `gorm:"size:100;not null" json:"emergency_contact"`

	// Status is a materialization of DeriveStatus(); it is written only
	// together with a stage decision, never independently.
	Status string `gorm:"size:20;not null;default:'pending';index" json:"status"`

	Advisor StageDecision `gorm:"embedded;embeddedPrefix:advisor_" json:"advisor"`
	Hod     StageDecision `gorm:"embedded;embeddedPrefix:hod_" json:"hod"`
	Warden  StageDecision `gorm:"embedded;embeddedPrefix:warden_" json:"warden"`

	GateToken       *string    `gorm:"size:80;uniqueIndex" json:"gate_token,omitempty"`
	GateTokenExpiry *time.Time `json:"gate_token_expiry,omitempty"`

	ScanStatus string     `gorm:"size:20;not null;default:'not_scanned'" json:"scan_status"`
	ExitedAt   *time.Time `json:"exited_at,omitempty"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_leaves_student_created" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Student *User `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

// StageFor returns the decision block for a stage.
func (lr *LeaveRequest) StageFor(stage domain.Stage) *StageDecision {
	switch stage {
	case domain.StageAdvisor:
		return &lr.Advisor
	case domain.StageHOD:
		return &lr.Hod
	case domain.StageWarden:
		return &lr.Warden
	}
	return nil
}

// DeriveStatus computes the overall status from the three stage statuses:
// rejected if any stage is rejected, approved iff all three are approved,
// pending otherwise. The stored Status column must always equal this value.
func (lr *LeaveRequest) DeriveStatus() string {
	stages := [3]string{lr.Advisor.Status, lr.Hod.Status, lr.Warden.Status}
	approved := 0
	for _, s := range stages {
		switch s {
		case domain.StatusRejected:
			return domain.StatusRejected
		case domain.StatusApproved:
			approved++
		}
	}
	if approved == len(stages) {
		return domain.StatusApproved
	}
	return domain.StatusPending
}

// WindowContains reports whether now falls inside [FromDate, ToDate].
func (lr *LeaveRequest) WindowContains(now time.Time) bool {
	return !now.Before(lr.FromDate) && !now.After(lr.ToDate)
}

// StageColumnPrefix maps a stage to its embedded column prefix.
func StageColumnPrefix(stage domain.Stage) string {
	return strings.ToLower(string(stage)) + "_"
}

// LeaveResponse DTO
type LeaveResponse struct {
	ID               uint          `json:"id"`
	StudentID        uint          `json:"student_id"`
	StudentName      string        `json:"student_name,omitempty"`
	StudentReg       string        `json:"student_reg,omitempty"`
	FromDate         time.Time     `json:"from_date"`
	ToDate           time.Time     `json:"to_date"`
	Reason           string        `json:"reason"`
	Destination      string        `json:"destination"`
	EmergencyContact string        `json:"emergency_contact"`
	Status           string        `json:"status"`
	Advisor          StageDecision `json:"advisor"`
	Hod              StageDecision `json:"hod"`
	Warden           StageDecision `json:"warden"`
	GateToken        *string       `json:"gate_token,omitempty"`
	GateTokenExpiry  *time.Time    `json:"gate_token_expiry,omitempty"`
	ScanStatus       string        `json:"scan_status"`
	ExitedAt         *time.Time    `json:"exited_at,omitempty"`
	ReturnedAt       *time.Time    `json:"returned_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (lr *LeaveRequest) ToResponse() *LeaveResponse {
	resp := &LeaveResponse{
		ID:               lr.ID,
		StudentID:        lr.StudentID,
		FromDate:         lr.FromDate,
		ToDate:           lr.ToDate,
		Reason:           lr.Reason,
		Destination:      lr.Destination,
		EmergencyContact: lr.EmergencyContact,
		Status:           lr.Status,
		Advisor:          lr.Advisor,
		Hod:              lr.Hod,
		Warden:           lr.Warden,
		GateToken:        lr.GateToken,
		GateTokenExpiry:  lr.GateTokenExpiry,
		ScanStatus:       lr.ScanStatus,
		ExitedAt:         lr.ExitedAt,
		ReturnedAt:       lr.ReturnedAt,
		CreatedAt:        lr.CreatedAt,
		UpdatedAt:        lr.UpdatedAt,
	}

	if lr.Student != nil {
		resp.StudentName = lr.Student.FullName
		resp.StudentReg = lr.Student.RegNo
	}

	return resp
}

// ============================================================
// Scan Audit Table
// ============================================================

// ScanEvent is the append-only audit record of one gate interaction.
// Rows are inserted once and never updated or deleted; no update path
// exists in the repository.
type ScanEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	LeaveID       *uint     `gorm:"index:idx_scan_events_leave_ts" json:"leave_id,omitempty"`
	GuardID       uint      `gorm:"not null;index:idx_scan_events_guard_ts" json:"guard_id"`
	Token         string    `gorm:"size:80;not null" json:"token"`
	Direction     string    `gorm:"size:10" json:"direction,omitempty"`
	IsValid       bool      `gorm:"not null" json:"is_valid"`
	FailureReason string    `gorm:"size:50" json:"failure_reason,omitempty"`
	RecordedAt    time.Time `gorm:"not null;index:idx_scan_events_leave_ts;index:idx_scan_events_guard_ts" json:"recorded_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Leave *LeaveRequest `gorm:"foreignKey:LeaveID" json:"leave,omitempty"`
	Guard *User         `gorm:"foreignKey:GuardID" json:"guard,omitempty"`
}

func (ScanEvent) TableName() string {
	return "scan_events"
}

// Failure reasons recorded on rejected scans.
const (
	ScanFailMalformedToken       = "MalformedToken"
	ScanFailUnknownToken         = "UnknownToken"
	ScanFailNotApproved          = "NotApproved"
	ScanFailOutsideLeaveWindow   = "OutsideLeaveWindow"
	ScanFailCycleAlreadyComplete = "CycleAlreadyComplete"
)

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&LeaveRequest{},
		&ScanEvent{},
	)
}
