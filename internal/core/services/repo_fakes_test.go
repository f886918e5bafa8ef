package services

import (
	"context"
	"time"

	"hostelpass/internal/adapters/persistence/models"
	"hostelpass/internal/adapters/persistence/repositories"
	"hostelpass/internal/core/domain"

	"gorm.io/gorm"
)

// In-memory repository fakes. The conditional writes mirror the SQL
// implementations: they re-check the observed state and report
// applied=false instead of writing when the row has moved.

type fakeUserRepo struct {
	users  map[uint]*models.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User), nextID: 1}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, role string, offset, limit int) ([]*models.User, int64, error) {
	var out []*models.User
	for _, u := range r.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *fakeUserRepo) ExistsByRegNo(ctx context.Context, regNo string) (bool, error) {
	for _, u := range r.users {
		if u.RegNo == regNo {
			return true, nil
		}
	}
	return false, nil
}

type fakeLeaveRepo struct {
	leaves map[uint]*models.LeaveRequest
	nextID uint

	// decideCollisions fails that many DecideStage calls carrying a gate
	// token with a duplicate-key error before succeeding.
	decideCollisions int
	mintedTokens     []string
}

func newFakeLeaveRepo() *fakeLeaveRepo {
	return &fakeLeaveRepo{leaves: make(map[uint]*models.LeaveRequest), nextID: 1}
}

func (r *fakeLeaveRepo) add(leave *models.LeaveRequest) *models.LeaveRequest {
	if leave.ID == 0 {
		leave.ID = r.nextID
		r.nextID++
	}
	r.leaves[leave.ID] = leave
	return leave
}

func (r *fakeLeaveRepo) Create(ctx context.Context, leave *models.LeaveRequest) error {
	r.add(leave)
	return nil
}

func (r *fakeLeaveRepo) GetByID(ctx context.Context, id uint) (*models.LeaveRequest, error) {
	leave, ok := r.leaves[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return leave, nil
}

func (r *fakeLeaveRepo) GetByToken(ctx context.Context, token string) (*models.LeaveRequest, error) {
	for _, l := range r.leaves {
		if l.GateToken != nil && *l.GateToken == token {
			return l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLeaveRepo) ListByStudent(ctx context.Context, studentID uint, status string, offset, limit int) ([]*models.LeaveRequest, int64, error) {
	var out []*models.LeaveRequest
	for _, l := range r.leaves {
		if l.StudentID == studentID && (status == "" || l.Status == status) {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeaveRepo) ListByAdvisorRoster(ctx context.Context, advisorID uint, status string, offset, limit int) ([]*models.LeaveRequest, int64, error) {
	var out []*models.LeaveRequest
	for _, l := range r.leaves {
		if l.Student != nil && l.Student.AdvisorID != nil && *l.Student.AdvisorID == advisorID &&
			(status == "" || l.Status == status) {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeaveRepo) ListByStageApproved(ctx context.Context, stage domain.Stage, status string, offset, limit int) ([]*models.LeaveRequest, int64, error) {
	var out []*models.LeaveRequest
	for _, l := range r.leaves {
		if l.StageFor(stage).Status == domain.StatusApproved && (status == "" || l.Status == status) {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeaveRepo) List(ctx context.Context, status string, offset, limit int) ([]*models.LeaveRequest, int64, error) {
	var out []*models.LeaveRequest
	for _, l := range r.leaves {
		if status == "" || l.Status == status {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeaveRepo) DecideStage(ctx context.Context, leaveID uint, stage domain.Stage, upd *repositories.StageUpdate) (bool, error) {
	leave, ok := r.leaves[leaveID]
	if !ok {
		return false, nil
	}

	if upd.GateToken != nil {
		if r.decideCollisions > 0 {
			r.decideCollisions--
			return false, gorm.ErrDuplicatedKey
		}
		for _, l := range r.leaves {
			if l.ID != leaveID && l.GateToken != nil && *l.GateToken == *upd.GateToken {
				return false, gorm.ErrDuplicatedKey
			}
		}
	}

	// Conditional update: target stage and overall status must still be pending.
	if leave.StageFor(stage).Status != domain.StatusPending || leave.Status != domain.StatusPending {
		return false, nil
	}

	block := leave.StageFor(stage)
	block.Status = upd.Status
	block.Comment = upd.Comment
	decidedBy := upd.DecidedBy
	decidedAt := upd.DecidedAt
	block.DecidedBy = &decidedBy
	block.DecidedAt = &decidedAt
	leave.Status = upd.Overall
	if upd.GateToken != nil {
		leave.GateToken = upd.GateToken
		leave.GateTokenExpiry = upd.GateTokenExpiry
		r.mintedTokens = append(r.mintedTokens, *upd.GateToken)
	}
	return true, nil
}

func (r *fakeLeaveRepo) ApplyScan(ctx context.Context, leaveID uint, upd *repositories.ScanUpdate) (bool, error) {
	leave, ok := r.leaves[leaveID]
	if !ok {
		return false, nil
	}
	if leave.ScanStatus != upd.FromState || leave.Status != domain.StatusApproved {
		return false, nil
	}
	leave.ScanStatus = upd.ToState
	at := upd.At
	switch upd.ToState {
	case domain.ScanExited:
		leave.ExitedAt = &at
	case domain.ScanReturned:
		leave.ReturnedAt = &at
	}
	return true, nil
}

func (r *fakeLeaveRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	for _, l := range r.leaves {
		if l.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeLeaveRepo) CountPendingAtStage(ctx context.Context, stage domain.Stage) (int64, error) {
	var n int64
	for _, l := range r.leaves {
		if l.Status == domain.StatusPending && l.StageFor(stage).Status == domain.StatusPending {
			n++
		}
	}
	return n, nil
}

func (r *fakeLeaveRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]*models.LeaveRequest, error) {
	var out []*models.LeaveRequest
	for _, l := range r.leaves {
		if l.Status == domain.StatusApproved && l.ToDate.Before(asOf) && l.ScanStatus != domain.ScanReturned {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeScanEventRepo struct {
	events []*models.ScanEvent
}

func newFakeScanEventRepo() *fakeScanEventRepo {
	return &fakeScanEventRepo{}
}

func (r *fakeScanEventRepo) Create(ctx context.Context, event *models.ScanEvent) error {
	event.ID = uint(len(r.events) + 1)
	r.events = append(r.events, event)
	return nil
}

func (r *fakeScanEventRepo) ListByGuard(ctx context.Context, guardID uint, limit int) ([]*models.ScanEvent, error) {
	var out []*models.ScanEvent
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.events[i].GuardID == guardID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func (r *fakeScanEventRepo) ListByLeave(ctx context.Context, leaveID uint) ([]*models.ScanEvent, error) {
	var out []*models.ScanEvent
	for _, e := range r.events {
		if e.LeaveID != nil && *e.LeaveID == leaveID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeScanEventRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	for _, e := range r.events {
		if !e.RecordedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
