package services

import (
	"context"
	"log"
	"time"

	"hostelpass/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronService runs the scheduled maintenance jobs: purging expired refresh
// tokens and flagging leave requests whose window ended without a return scan.
type CronService struct {
	cron             *cron.Cron
	leaveRepo        repositories.LeaveRepository
	refreshTokenRepo repositories.RefreshTokenRepository
}

// NewCronService creates a new cron service
func NewCronService(db *gorm.DB) *CronService {
	return &CronService{
		cron:             cron.New(),
		leaveRepo:        repositories.NewLeaveRepository(db),
		refreshTokenRepo: repositories.NewRefreshTokenRepository(db),
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() {
	// 02:00 daily: purge expired refresh tokens
	s.cron.AddFunc("0 2 * * *", s.purgeExpiredTokens)

	// 07:00 daily: report students overdue for return
	s.cron.AddFunc("0 7 * * *", s.reportOverdueReturns)

	s.cron.Start()
	log.Println("✅ Cron service started")
}

// Stop stops the scheduler
func (s *CronService) Stop() {
	s.cron.Stop()
	log.Println("🛑 Cron service stopped")
}

func (s *CronService) purgeExpiredTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.refreshTokenRepo.DeleteExpired(ctx)
	if err != nil {
		log.Printf("❌ Cron: failed to purge expired refresh tokens: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("🧹 Cron: purged %d expired refresh tokens", deleted)
	}
}

func (s *CronService) reportOverdueReturns() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	overdue, err := s.leaveRepo.ListOverdue(ctx, time.Now())
	if err != nil {
		log.Printf("❌ Cron: failed to list overdue leaves: %v", err)
		return
	}
	if len(overdue) == 0 {
		return
	}

	log.Printf("⚠️ Cron: %d students past their leave window without a return scan", len(overdue))
	for _, leave := range overdue {
		name := ""
		if leave.Student != nil {
			name = leave.Student.RegNo
		}
		log.Printf("⚠️ Cron: leave #%d (student %s) due back %s, scan state %s",
			leave.ID, name, leave.ToDate.Format("2006-01-02"), leave.ScanStatus)
	}
}
