package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=1"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&User{}, &Task{}, &AuditRecord{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestBeforeCreateAssignsUUIDs(t *testing.T) {
	db := openTestDB(t)

	user := User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, db.Create(&user).Error)
	require.NotEmpty(t, user.ID)

	task := Task{Title: "write report", OwnerID: user.ID}
	require.NoError(t, db.Create(&task).Error)
	require.NotEmpty(t, task.ID)

	record := AuditRecord{TaskID: task.ID, Action: ActionCreated}
	require.NoError(t, db.Create(&record).Error)
	require.NotEmpty(t, record.ID)
}

func TestUsernameAndEmailUniqueness(t *testing.T) {
	db := openTestDB(t)

	first := User{Username: "bob", Email: "bob@example.com", Password: "hash"}
	require.NoError(t, db.Create(&first).Error)

	dupUsername := User{Username: "bob", Email: "other@example.com", Password: "hash"}
	require.Error(t, db.Create(&dupUsername).Error)

	dupEmail := User{Username: "robert", Email: "bob@example.com", Password: "hash"}
	require.Error(t, db.Create(&dupEmail).Error)
}

func TestActiveTasksScopeHidesDeleted(t *testing.T) {
	db := openTestDB(t)

	user := User{Username: "carol", Email: "carol@example.com", Password: "hash"}
	require.NoError(t, db.Create(&user).Error)

	visible := Task{Title: "visible", OwnerID: user.ID}
	require.NoError(t, db.Create(&visible).Error)

	hidden := Task{Title: "hidden", OwnerID: user.ID, Deleted: true}
	require.NoError(t, db.Create(&hidden).Error)

	var tasks []Task
	require.NoError(t, db.Scopes(ActiveTasks).Find(&tasks).Error)
	require.Len(t, tasks, 1)
	require.Equal(t, "visible", tasks[0].Title)
}

func TestIsAdmin(t *testing.T) {
	require.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	require.False(t, (&User{Role: RoleUser}).IsAdmin())
	require.False(t, (&User{Role: "manager"}).IsAdmin())
}
