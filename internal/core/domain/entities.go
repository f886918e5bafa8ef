package domain

import "time"

// Role represents user role in the system
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdvisor Role = "ADVISOR"
	RoleHOD     Role = "HOD"
	RoleWarden  Role = "WARDEN"
	RoleGuard   Role = "GUARD"
	RoleAdmin   Role = "ADMIN"
)

// IsValidRole reports whether v names one of the defined roles.
func IsValidRole(v string) bool {
	switch Role(v) {
	case RoleStudent, RoleAdvisor, RoleHOD, RoleWarden, RoleGuard, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller as seen by the core services.
// Every operation receives it explicitly; services never read session state.
type Identity struct {
	UserID   uint
	Username string
	Role     Role
}

// Stage is one of the three approval steps of a leave request.
type Stage string

const (
	StageAdvisor Stage = "advisor"
	StageHOD     Stage = "hod"
	StageWarden  Stage = "warden"
)

// StageOrder is the fixed decision sequence. The chain is a closed
// three-element array, not an extensible workflow graph.
var StageOrder = [3]Stage{StageAdvisor, StageHOD, StageWarden}

// DesignatedRole returns the only role allowed to decide the stage.
func (s Stage) DesignatedRole() Role {
	switch s {
	case StageAdvisor:
		return RoleAdvisor
	case StageHOD:
		return RoleHOD
	case StageWarden:
		return RoleWarden
	}
	return ""
}

// Index returns the stage's position in StageOrder, or -1 for an unknown stage.
func (s Stage) Index() int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStage maps a path/form value to a Stage.
func ParseStage(v string) (Stage, bool) {
	switch Stage(v) {
	case StageAdvisor, StageHOD, StageWarden:
		return Stage(v), true
	}
	return "", false
}

// Stage and overall statuses share the same three values.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Scan states of a leave request's gate cycle.
const (
	ScanNotScanned = "not_scanned"
	ScanExited     = "exited"
	ScanReturned   = "returned"
)

// Scan directions recorded on a ScanEvent.
const (
	DirectionExit   = "EXIT"
	DirectionReturn = "RETURN"
)

// ScanOutcome is what the gate terminal shows the guard after a valid scan.
type ScanOutcome struct {
	LeaveID     uint      `json:"leave_id"`
	Direction   string    `json:"direction"`
	StudentName string    `json:"student_name"`
	StudentReg  string    `json:"student_reg"`
	FromDate    time.Time `json:"from_date"`
	ToDate      time.Time `json:"to_date"`
	ScannedAt   time.Time `json:"scanned_at"`
}
