package database

import (
	"testing"

	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestAutoMigrateAndSeedData(t *testing.T) {
	t.Setenv("TASKHIVE_ADMIN_PASSWORD", "bootstrap-secret")

	db := openTestDB(t)

	if err := AutoMigrateAndSeed(db); err != nil {
		t.Fatalf("auto migrate and seed failed: %v", err)
	}

	var admin models.User
	if err := db.Where("role = ?", models.RoleAdmin).First(&admin).Error; err != nil {
		t.Fatalf("expected seeded admin user: %v", err)
	}
	if admin.Password == "bootstrap-secret" {
		t.Fatalf("expected seeded password to be hashed")
	}

	// Seeding twice must not create a second admin.
	if err := SeedData(db); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		t.Fatalf("count admins: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 admin, got %d", count)
	}
}

func TestSeedDataSkipsWithoutPassword(t *testing.T) {
	t.Setenv("TASKHIVE_ADMIN_PASSWORD", "")

	db := openTestDB(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	if err := SeedData(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no users to be seeded, got %d", count)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite"})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
