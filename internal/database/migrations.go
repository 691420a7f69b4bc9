package database

import (
	"errors"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.AuditRecord{},
		&models.CacheEntry{},
	)
}

const defaultAdminUsername = "admin"

// SeedData provisions the default administrator account when no admin exists.
// The initial password comes from TASKHIVE_ADMIN_PASSWORD; without it the seed
// is skipped so deployments never ship a known credential.
func SeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := strings.TrimSpace(os.Getenv("TASKHIVE_ADMIN_PASSWORD"))
	if password == "" {
		return nil
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Username: defaultAdminUsername,
		Email:    "admin@localhost",
		Password: hashed,
		Role:     models.RoleAdmin,
	}

	err = db.Where(models.User{Username: admin.Username}).Attrs(admin).FirstOrCreate(&models.User{}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return nil
}
