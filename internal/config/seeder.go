package config

import (
	"log"

	"hostelpass/internal/adapters/persistence/models"
	"hostelpass/internal/core/domain"
	"hostelpass/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedMasterData seeds the baseline accounts the system needs to operate
func SeedMasterData(db *gorm.DB) error {
	return NewSeeder(db).Run()
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}
	if err := s.seedStaffUsers(); err != nil {
		log.Printf("⚠️ Staff seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds default admin user
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		RegNo:    "ADMIN001",
		Username: "admin",
		Email:    "admin@hostelpass.local",
		Password: hashedPassword,
		FullName: "System Administrator",
		Role:     string(domain.RoleAdmin),
		IsActive: true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Username)
	return nil
}

// seedStaffUsers seeds one account per staff role so a fresh install can
// exercise the full approval and gate flow. Dev convenience only.
func (s *Seeder) seedStaffUsers() error {
	staff := []models.User{
		{RegNo: "STAFF001", Username: "advisor1", Email: "advisor1@hostelpass.local", FullName: "Demo Advisor", Department: "Computer Science", Role: string(domain.RoleAdvisor)},
		{RegNo: "STAFF002", Username: "hod1", Email: "hod1@hostelpass.local", FullName: "Demo Department Head", Department: "Computer Science", Role: string(domain.RoleHOD)},
		{RegNo: "STAFF003", Username: "warden1", Email: "warden1@hostelpass.local", FullName: "Demo Warden", Role: string(domain.RoleWarden)},
		{RegNo: "STAFF004", Username: "guard1", Email: "guard1@hostelpass.local", FullName: "Demo Gate Guard", Role: string(domain.RoleGuard)},
	}

	for _, u := range staff {
		var count int64
		s.db.Model(&models.User{}).Where("username = ?", u.Username).Count(&count)
		if count > 0 {
			continue
		}

		hashedPassword, err := password.Hash(u.Username + "123456")
		if err != nil {
			return err
		}
		u.Password = hashedPassword
		u.IsActive = true

		if err := s.db.Create(&u).Error; err != nil {
			return err
		}
		log.Printf("✅ Staff user created: %s (%s)", u.Username, u.Role)
	}

	return nil
}
