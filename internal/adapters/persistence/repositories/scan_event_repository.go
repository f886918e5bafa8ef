package repositories

import (
	"context"
	"time"

	"hostelpass/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// scanEventRepository implements ScanEventRepository. Scan events are
// write-once audit rows; this type exposes no update or delete.
type scanEventRepository struct {
	db *gorm.DB
}

// NewScanEventRepository creates a new scan event repository
func NewScanEventRepository(db *gorm.DB) ScanEventRepository {
	return &scanEventRepository{db: db}
}

// Create appends a scan event
func (r *scanEventRepository) Create(ctx context.Context, event *models.ScanEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByGuard lists a guard's own scan events, newest first, capped at limit
func (r *scanEventRepository) ListByGuard(ctx context.Context, guardID uint, limit int) ([]*models.ScanEvent, error) {
	var events []*models.ScanEvent
	err := r.db.WithContext(ctx).
		Preload("Leave").
		Preload("Leave.Student").
		Where("guard_id = ?", guardID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// ListByLeave lists all scan events for a leave request, newest first
func (r *scanEventRepository) ListByLeave(ctx context.Context, leaveID uint) ([]*models.ScanEvent, error) {
	var events []*models.ScanEvent
	err := r.db.WithContext(ctx).
		Preload("Guard").
		Where("leave_id = ?", leaveID).
		Order("recorded_at DESC").
		Find(&events).Error
	return events, err
}

// CountSince counts scan events recorded at or after the given instant
func (r *scanEventRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScanEvent{}).
		Where("recorded_at >= ?", since).
		Count(&count).Error
	return count, err
}
